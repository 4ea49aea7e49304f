// Package remux concatenates fetched segments into one container with ffmpeg's
// concat demuxer, copying codecs without re-encoding.
package remux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"stream-stitch-relay/internal/config"
)

const (
	manifestName = "segments.txt"
	outputName   = "output.mp4"
)

var commandContext = exec.CommandContext

// Error is an encoding fault: the tool failed or produced nothing
type Error struct {
	Output string
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("encoding fault: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("encoding fault: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Remuxer runs the external concat tool
type Remuxer struct {
	binary string
}

// New creates a remuxer for the configured ffmpeg binary
func New(cfg config.RemuxConfig) *Remuxer {
	binary := strings.TrimSpace(cfg.FFmpegPath)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Remuxer{binary: binary}
}

// Binary returns the ffmpeg command the remuxer executes
func (r *Remuxer) Binary() string {
	return r.binary
}

// Available reports whether the ffmpeg binary can be resolved
func (r *Remuxer) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Concat writes segments, in order, to a concat manifest in scratchDir and
// remuxes them into a single file. The manifest never outlives the call and
// the output is removed when the tool fails.
func (r *Remuxer) Concat(ctx context.Context, segments []string, scratchDir string) (string, error) {
	if len(segments) == 0 {
		return "", &Error{Err: errors.New("no segments to concatenate")}
	}

	manifest := filepath.Join(scratchDir, manifestName)
	if err := writeManifest(manifest, segments); err != nil {
		return "", &Error{Err: err}
	}
	defer os.Remove(manifest)

	output := filepath.Join(scratchDir, outputName)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy",
		output,
	}

	logrus.WithField("segments", len(segments)).Debugf("Running %s %s", r.binary, strings.Join(args, " "))
	cmd := commandContext(ctx, r.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(output)
		return "", &Error{Output: strings.TrimSpace(string(out)), Err: err}
	}

	info, err := os.Stat(output)
	if err != nil {
		return "", &Error{Err: fmt.Errorf("stat output: %w", err)}
	}
	if info.Size() == 0 {
		_ = os.Remove(output)
		return "", &Error{Err: errors.New("generated file is empty")}
	}

	return output, nil
}

func writeManifest(path string, segments []string) error {
	var b strings.Builder
	for _, seg := range segments {
		abs, err := filepath.Abs(seg)
		if err != nil {
			return fmt.Errorf("resolve segment path: %w", err)
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}
