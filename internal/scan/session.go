package scan

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/logging"
)

var (
	ErrSessionStarted = errors.New("scan session already started")
	ErrSessionClosed  = errors.New("scan session closed")
)

// Handler receives the outcome of every code the session reads.
type Handler interface {
	HandleScan(ctx context.Context, p Payload)
	HandleInvalid(ctx context.Context, raw string, err error)
}

// Session pumps a Source into a Handler on a single goroutine. The same raw
// text seen again within the cooldown is dropped, so a badge held in front of
// the camera counts once.
type Session struct {
	src      Source
	handler  Handler
	cooldown time.Duration
	now      func() time.Time
	logger   logging.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	stopOnce sync.Once

	lastRaw string
	lastAt  time.Time
}

func NewSession(src Source, handler Handler, cooldown time.Duration, logger logging.Logger) *Session {
	return &Session{
		src:      src,
		handler:  handler,
		cooldown: cooldown,
		now:      time.Now,
		logger:   logger.With("module", "scan"),
		done:     make(chan struct{}),
	}
}

// Start launches the scan loop. A session runs at most once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.started {
		return ErrSessionStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.loop(ctx)
	return nil
}

// Stop cancels the loop and waits for it to exit. Safe to call any number of
// times, from any goroutine, before or after Start.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		started := s.started
		s.mu.Unlock()

		if !started {
			return
		}
		cancel()
		<-s.done
	})
}

// Done is closed when the loop exits, either after Stop or when the source
// is exhausted.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err reports why the loop ended; nil for a clean stop or end of input.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)

	for {
		raw, err := s.src.Next(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Error(ctx, "scan source failed", "error", err)
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
			}
			return
		}
		// a line read just before Stop is still handled, then the loop ends
		if ctx.Err() != nil {
			s.handle(context.WithoutCancel(ctx), raw)
			return
		}
		s.handle(ctx, raw)
	}
}

func (s *Session) handle(ctx context.Context, raw string) {
	if s.coolingDown(raw) {
		s.logger.Debug(ctx, "repeated code ignored", "raw", raw)
		return
	}

	p, err := Decode(raw)
	if err != nil {
		s.handler.HandleInvalid(ctx, raw, err)
		return
	}
	s.handler.HandleScan(ctx, p)
}

func (s *Session) coolingDown(raw string) bool {
	now := s.now()
	if raw == s.lastRaw && now.Sub(s.lastAt) < s.cooldown {
		return true
	}
	s.lastRaw = raw
	s.lastAt = now
	return false
}
