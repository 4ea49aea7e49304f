package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure
type Kind string

const (
	KindUnrecognizedFormat Kind = "unrecognized_format"
	KindDownloadFailed     Kind = "download_failed"
	KindNetworkError       Kind = "network_error"
	KindLocalIO            Kind = "local_io"
)

// ErrSegmentLimit is wrapped when a source yields more segments than allowed
var ErrSegmentLimit = errors.New("segment limit exceeded")

// Error is the single failure type returned by DetectPattern and the fetch loop
type Error struct {
	Kind       Kind
	HTTPStatus int
	Index      int
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDownloadFailed:
		if e.HTTPStatus != 0 {
			return fmt.Sprintf("download failed: segment %d returned HTTP %d", e.Index, e.HTTPStatus)
		}
		return fmt.Sprintf("download failed at segment %d: %v", e.Index, e.Err)
	case KindNetworkError:
		return fmt.Sprintf("network error at segment %d: %v", e.Index, e.Err)
	case KindLocalIO:
		return fmt.Sprintf("writing segment %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("unrecognized segment format: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}
