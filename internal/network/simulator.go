// Package network simulates latency, timeouts and transport errors for mocked endpoints.
package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prasenjit/go-mocksim/internal/models"
)

// TransportError is a simulated failure below the HTTP layer.
// The caller emulates it instead of writing a response.
type TransportError struct {
	Timeout bool
	Kind    models.NetworkErrorKind
	After   time.Duration
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("simulated timeout after %s", e.After)
	}
	return fmt.Sprintf("simulated network error: %s", e.Kind)
}

// IsTransportFailure reports whether err is, or wraps, a simulated transport failure
func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Plan is the network behaviour drawn for one request
type Plan struct {
	Delay        time.Duration
	Timeout      bool
	TimeoutAfter time.Duration
	NetworkError bool
	ErrorKind    models.NetworkErrorKind
}

// Failure returns the transport failure the plan calls for, or nil
func (p Plan) Failure() *TransportError {
	switch {
	case p.Timeout:
		return &TransportError{Timeout: true, After: p.TimeoutAfter}
	case p.NetworkError:
		return &TransportError{Kind: p.ErrorKind}
	default:
		return nil
	}
}

// Simulator draws network plans and performs the waits they call for
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a simulator. A nil rng is replaced by a time seeded one.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng}
}

// Plan computes the delay and failure mode for one request
func (s *Simulator) Plan(cfg *models.MockConfig) Plan {
	var p Plan

	if cfg.UseRandomDelay {
		lo, hi := cfg.DelayRandomMin, cfg.DelayRandomMax
		if lo > hi {
			lo, hi = hi, lo
		}
		p.Delay = time.Duration(lo+s.intn(hi-lo+1)) * time.Millisecond
	} else if cfg.DelayMs > 0 {
		p.Delay = time.Duration(cfg.DelayMs) * time.Millisecond
	}

	if cfg.SimulateTimeout {
		p.Timeout = true
		p.TimeoutAfter = time.Duration(cfg.TimeoutMs) * time.Millisecond
		return p
	}

	if cfg.SimulateNetworkError && s.roll() < cfg.NetworkErrorProbability {
		p.NetworkError = true
		p.ErrorKind = cfg.NetworkErrorType
		if p.ErrorKind == "" {
			p.ErrorKind = models.NetworkConnectionRefused
		}
	}

	return p
}

// Apply enforces the failure part of the plan. A timeout waits TimeoutAfter
// before failing; a network error fails at once. The normal delay is left to
// the caller so it can follow response selection.
func (s *Simulator) Apply(ctx context.Context, p Plan) error {
	failure := p.Failure()
	if failure == nil {
		return nil
	}
	if failure.Timeout {
		if err := s.Wait(ctx, p.TimeoutAfter); err != nil {
			return err
		}
	}
	return failure
}

// Wait suspends the calling goroutine for d or until ctx is done
func (s *Simulator) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) intn(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
