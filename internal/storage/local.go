package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidName      = errors.New("invalid object name")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("signed url expired")
)

// LocalStore keeps artifacts on disk and signs URLs served by this process's /artifacts route
type LocalStore struct {
	dir       string
	publicURL string
	key       []byte
	now       func() time.Time
}

var _ ObjectStore = (*LocalStore)(nil)

// NewLocalStore creates the artifact directory if needed
func NewLocalStore(dir, publicURL, signingKey string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		key:       []byte(signingKey),
		now:       time.Now,
	}, nil
}

func (s *LocalStore) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to publish artifact: %w", err)
	}

	logrus.Infof("Stored artifact %s (%s)", name, humanize.Bytes(uint64(written)))
	return name, nil
}

func (s *LocalStore) SignedURL(ctx context.Context, objectID string, ttl time.Duration) (string, error) {
	if err := validateName(objectID); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)

	q := url.Values{}
	q.Set("expires", expires)
	q.Set("signature", s.sign(objectID, expires))
	return fmt.Sprintf("%s/artifacts/%s?%s", s.publicURL, url.PathEscape(objectID), q.Encode()), nil
}

// Verify checks a signed URL's parameters and returns the artifact's path on disk
func (s *LocalStore) Verify(name, expires, signature string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if !hmac.Equal([]byte(signature), []byte(s.sign(name, expires))) {
		return "", ErrInvalidSignature
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return "", ErrInvalidSignature
	}
	if s.now().Unix() > exp {
		return "", ErrExpired
	}
	return filepath.Join(s.dir, name), nil
}

func (s *LocalStore) Close() error {
	return nil
}

func (s *LocalStore) sign(name, expires string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(name + "\n" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
