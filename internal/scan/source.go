package scan

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// Source yields raw decoded strings, one per detected code. Next blocks until
// a code is available, the source is exhausted (io.EOF) or ctx is done.
type Source interface {
	Next(ctx context.Context) (string, error)
}

// LineSource reads one payload per line, which is how keyboard-wedge and
// serial scanners deliver codes.
type LineSource struct {
	once  sync.Once
	r     io.Reader
	lines chan string
	err   error
}

func NewLineSource(r io.Reader) *LineSource {
	return &LineSource{r: r, lines: make(chan string)}
}

func (s *LineSource) start() {
	go func() {
		defer close(s.lines)
		sc := bufio.NewScanner(s.r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			s.lines <- line
		}
		s.err = sc.Err()
	}()
}

func (s *LineSource) Next(ctx context.Context) (string, error) {
	s.once.Do(s.start)

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			if s.err != nil {
				return "", s.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// SliceSource replays a fixed list of payloads, then reports io.EOF.
type SliceSource struct {
	mu    sync.Mutex
	items []string
}

func NewSliceSource(items ...string) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return "", io.EOF
	}
	item := s.items[0]
	s.items = s.items[1:]
	return item, nil
}
