package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// State is the position of a session in its lifecycle. Sessions always end
// in StateDisconnected, whatever the outcome.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAwaitingFinger
	StateCaptured
	StateFeaturesExtracted
	StateSearching
	StateMatched
	StateNoMatch
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAwaitingFinger:
		return "awaiting-finger"
	case StateCaptured:
		return "captured"
	case StateFeaturesExtracted:
		return "features-extracted"
	case StateSearching:
		return "searching"
	case StateMatched:
		return "matched"
	case StateNoMatch:
		return "no-match"
	default:
		return "unknown"
	}
}

// Result is the outcome of a completed search.
type Result struct {
	Matched bool
	Page    uint16 // matching template page, when Matched
	Score   uint16 // module match score, when Matched
}

// Default polling policy: one capture attempt every 100 ms, five seconds
// total before giving up on the finger.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultWaitTimeout  = 5 * time.Second
)

// Reader owns access to the one physical sensor. Verification attempts may
// arrive concurrently from the web layer; the Reader serializes them for the
// whole open-to-disconnect span so two logical sessions never interleave
// reads on the serial line. Each attempt opens a fresh device channel, so no
// attempt can observe buffer state left behind by a previous one.
type Reader struct {
	mu           sync.Mutex
	openDevice   func() (Device, error)
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewReader creates a reader that opens a device per attempt via openDevice.
// Zero durations select the defaults.
func NewReader(openDevice func() (Device, error), pollInterval, waitTimeout time.Duration) *Reader {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &Reader{
		openDevice:   openDevice,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}
}

// Verify runs one full verification attempt against the given template
// pages. Pages are searched in the supplied order and the search stops at
// the first match. The device is disconnected exactly once on every exit
// path, including context cancellation mid-poll; hardware cleanup itself is
// not cancellable.
func (r *Reader) Verify(ctx context.Context, pages []uint16) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := &session{reader: r}
	return s.run(ctx, pages)
}

// session is the per-attempt state machine.
type session struct {
	reader *Reader
	dev    Device
	state  State
}

func (s *session) run(ctx context.Context, pages []uint16) (Result, error) {
	dev, err := s.reader.openDevice()
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.dev = dev

	if err := dev.Connect(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	s.state = StateConnected

	// Single cleanup point for every path below.
	defer func() {
		s.dev.Disconnect()
		s.state = StateDisconnected
	}()

	if err := s.awaitFinger(ctx); err != nil {
		return Result{}, err
	}

	if err := s.extract(); err != nil {
		return Result{}, err
	}

	return s.search(pages)
}

// awaitFinger polls for finger presence under the wait deadline. The first
// successful capture ends the wait immediately.
func (s *session) awaitFinger(ctx context.Context) error {
	s.state = StateAwaitingFinger

	deadline := time.Now().Add(s.reader.waitTimeout)
	ticker := time.NewTicker(s.reader.pollInterval)
	defer ticker.Stop()

	for {
		code, err := s.dev.CaptureImage()
		if err != nil {
			return fmt.Errorf("capture poll: %w", err)
		}
		switch code {
		case CodeOK:
			s.state = StateCaptured
			return nil
		case CodeNoFinger, CodeCaptureFailed:
			// Keep polling.
		default:
			return fmt.Errorf("capture poll: unexpected code %#02x", byte(code))
		}

		if time.Now().After(deadline) {
			return ErrNoFinger
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// extract converts the captured image into a feature template in Buffer1.
// No retry: a messy image fails the attempt and the voter presents again.
func (s *session) extract() error {
	code, err := s.dev.ExtractFeatures(Buffer1)
	if err != nil {
		return fmt.Errorf("feature extraction: %w", err)
	}
	if code != CodeOK {
		return fmt.Errorf("%w: code %#02x", ErrExtractionFailed, byte(code))
	}
	s.state = StateFeaturesExtracted
	return nil
}

// search compares the extracted template against each enrolled page,
// short-circuiting on the first match. A page that fails to load counts as
// no match for that page; a failed match command is a device error.
func (s *session) search(pages []uint16) (Result, error) {
	s.state = StateSearching

	for _, page := range pages {
		code, err := s.dev.LoadTemplate(Buffer2, page)
		if err != nil {
			return Result{}, fmt.Errorf("load template page %d: %w", page, err)
		}
		if code != CodeOK {
			continue
		}

		code, score, err := s.dev.MatchTemplates()
		if err != nil {
			return Result{}, fmt.Errorf("match against page %d: %w", page, err)
		}
		if code == CodeOK {
			s.state = StateMatched
			return Result{Matched: true, Page: page, Score: score}, nil
		}
		if code != CodeNoMatch {
			return Result{}, fmt.Errorf("match against page %d: unexpected code %#02x", page, byte(code))
		}
	}

	s.state = StateNoMatch
	return Result{Matched: false}, nil
}
