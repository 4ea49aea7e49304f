package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// GCSStore uploads artifacts to a Google Cloud Storage bucket and signs V4 URLs
// with the service account key it was created from.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	accessID   string
	privateKey []byte
}

var _ ObjectStore = (*GCSStore)(nil)

// NewGCSStore creates a store authenticated with a service account key file
func NewGCSStore(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	key, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	jwt, err := google.JWTConfigFromJSON(key, storage.ScopeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client:     client,
		bucket:     bucket,
		accessID:   jwt.Email,
		privateKey: jwt.PrivateKey,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = "video/mp4"

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", name, err)
	}

	logrus.Infof("Uploaded artifact gs://%s/%s", s.bucket, name)
	return name, nil
}

func (s *GCSStore) SignedURL(ctx context.Context, objectID string, ttl time.Duration) (string, error) {
	u, err := storage.SignedURL(s.bucket, objectID, &storage.SignedURLOptions{
		GoogleAccessID: s.accessID,
		PrivateKey:     s.privateKey,
		Method:         "GET",
		Expires:        time.Now().Add(ttl),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign url for %s: %w", objectID, err)
	}
	return u, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
