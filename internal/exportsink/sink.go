// Package exportsink delivers export blobs: to a local directory, to an
// S3-compatible bucket, or to several destinations at once.
package exportsink

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/attendkeeper/internal/export"
	"github.com/dmitrijs2005/attendkeeper/internal/filex"
	"github.com/dmitrijs2005/attendkeeper/internal/logging"
)

// Sink delivers a blob and returns where it ended up.
type Sink interface {
	Deliver(ctx context.Context, b export.Blob) (string, error)
}

// FileSink writes blobs into a directory.
type FileSink struct {
	dir    string
	logger logging.Logger
}

// NewFileSink creates dir if it does not exist.
func NewFileSink(dir string, logger logging.Logger) (*FileSink, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("export dir: %w", err)
	}
	return &FileSink{dir: abs, logger: logger.With("module", "exportsink")}, nil
}

func (s *FileSink) Deliver(ctx context.Context, b export.Blob) (string, error) {
	path, err := filex.WriteFile(s.dir, b.Name, b.Content)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "export written", "path", path, "bytes", len(b.Content))
	return path, nil
}

// Multi delivers to every sink in order. It keeps going after a failure and
// returns the joined errors.
type Multi []Sink

func (m Multi) Deliver(ctx context.Context, b export.Blob) (string, error) {
	var (
		first string
		errs  []error
	)
	for _, s := range m {
		loc, err := s.Deliver(ctx, b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first == "" {
			first = loc
		}
	}
	return first, errors.Join(errs...)
}
