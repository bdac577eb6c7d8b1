package request

import (
	"sync"
	"time"
)

// FrameScheduler defers work to the host application's next
// production-frame boundary. SERIAL_FRAME batches run every step
// through it, and Sleep uses it to count frames.
type FrameScheduler interface {
	// OnNextFrame queues fn to run on the next frame boundary. The
	// scheduler decides when (and on which goroutine) fn runs; callers
	// that need to block until then wait on their own signal inside fn.
	OnNextFrame(fn func())
}

// ImmediateScheduler runs frame work inline. It stands in when the
// host exposes no frame clock, making SERIAL_FRAME behave like
// SERIAL_REALTIME.
type ImmediateScheduler struct{}

// OnNextFrame runs fn immediately on the calling goroutine.
func (ImmediateScheduler) OnNextFrame(fn func()) {
	fn()
}

// TickerScheduler approximates frame boundaries with a fixed interval.
// Standalone deployments use it in place of a real render clock.
type TickerScheduler struct {
	interval time.Duration

	mu      sync.Mutex
	pending []func()
	done    chan struct{}
	started bool
}

// NewTickerScheduler creates a scheduler firing at the given interval.
// An interval of zero defaults to roughly 60 frames per second.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &TickerScheduler{
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the frame loop. Calling Start twice is a no-op.
func (s *TickerScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.run()
}

// Stop halts the frame loop. Pending work runs one final time so no
// waiter blocks forever.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.started = false
	close(s.done)
}

// OnNextFrame queues fn for the next tick.
func (s *TickerScheduler) OnNextFrame(fn func()) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		fn()
		return
	}
	s.pending = append(s.pending, fn)
	s.mu.Unlock()
}

func (s *TickerScheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.done:
			s.flush()
			return
		}
	}
}

func (s *TickerScheduler) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}
