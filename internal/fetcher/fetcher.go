package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/config"
)

// Result is the ordered set of segments persisted for one source
type Result struct {
	Segments []string
	Bytes    int64
}

// Fetcher retrieves numbered segments sequentially until the source reports 404
type Fetcher struct {
	client      *http.Client
	maxSegments int
	userAgent   string
}

// New creates a fetcher from configuration
func New(cfg config.FetcherConfig) *Fetcher {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		maxSegments: cfg.MaxSegments,
		userAgent:   cfg.UserAgent,
	}
}

// FetchAll detects the naming pattern of sourceURL and fetches every segment into dir
func (f *Fetcher) FetchAll(ctx context.Context, sourceURL, dir string) (*Result, error) {
	p, err := DetectPattern(sourceURL)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, p, dir)
}

// Fetch walks segment indices from 1. A 404 ends the sequence; any other
// failure discards everything fetched so far.
func (f *Fetcher) Fetch(ctx context.Context, p *Pattern, dir string) (*Result, error) {
	result := &Result{}
	log := logrus.WithField("source", p.URL(1))

	for n := 1; ; n++ {
		if n > f.maxSegments {
			discard(result.Segments)
			return nil, &Error{Kind: KindDownloadFailed, Index: n, Err: fmt.Errorf("%w (%d)", ErrSegmentLimit, f.maxSegments)}
		}

		dest := filepath.Join(dir, filepath.Base(p.Filename(n)))
		status, written, err := f.fetchSegment(ctx, p.URL(n), dest)
		if err != nil {
			discard(result.Segments)
			return nil, withIndex(err, n)
		}

		switch {
		case status == http.StatusNotFound:
			if n == 1 {
				return nil, &Error{Kind: KindDownloadFailed, HTTPStatus: status, Index: n}
			}
			log.Infof("Fetched %d segments (%s)", len(result.Segments), humanize.Bytes(uint64(result.Bytes)))
			return result, nil
		case status >= 200 && status < 300:
			result.Segments = append(result.Segments, dest)
			result.Bytes += written
			log.Debugf("Fetched segment %d (%s)", n, humanize.Bytes(uint64(written)))
		default:
			discard(result.Segments)
			return nil, &Error{Kind: KindDownloadFailed, HTTPStatus: status, Index: n}
		}
	}
}

// fetchSegment writes a 2xx body to dest and returns the response status
func (f *Fetcher) fetchSegment(ctx context.Context, segmentURL, dest string) (int, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segmentURL, nil)
	if err != nil {
		return 0, 0, &Error{Kind: KindNetworkError, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, &Error{Kind: KindNetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return resp.StatusCode, 0, nil
	}

	file, err := os.Create(dest)
	if err != nil {
		return 0, 0, &Error{Kind: KindLocalIO, Err: err}
	}
	written, err := io.Copy(file, resp.Body)
	if err != nil {
		_ = file.Close()
		_ = os.Remove(dest)
		return 0, 0, &Error{Kind: KindNetworkError, Err: err}
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(dest)
		return 0, 0, &Error{Kind: KindLocalIO, Err: err}
	}
	return resp.StatusCode, written, nil
}

func withIndex(err error, n int) error {
	if fe, ok := err.(*Error); ok {
		fe.Index = n
		return fe
	}
	return &Error{Kind: KindNetworkError, Index: n, Err: err}
}

func discard(paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Failed to remove partial segment %s: %v", p, err)
		}
	}
}
