package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/prasenjit/go-mocksim/internal/models"
)

func newTestSimulator() *Simulator {
	return NewSimulator(rand.New(rand.NewSource(42)))
}

func TestPlan_FixedDelay(t *testing.T) {
	s := newTestSimulator()
	p := s.Plan(&models.MockConfig{DelayMs: 150})

	if p.Delay != 150*time.Millisecond {
		t.Errorf("expected 150ms, got %v", p.Delay)
	}
	if p.Failure() != nil {
		t.Error("expected no failure")
	}
}

func TestPlan_RandomDelayWithinRange(t *testing.T) {
	s := newTestSimulator()

	tests := []struct {
		name     string
		min, max int
	}{
		{"ordered range", 10, 20},
		{"reversed range", 20, 10},
		{"single point", 7, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := tt.min, tt.max
			if lo > hi {
				lo, hi = hi, lo
			}
			cfg := &models.MockConfig{UseRandomDelay: true, DelayRandomMin: tt.min, DelayRandomMax: tt.max, DelayMs: 5000}
			for i := 0; i < 200; i++ {
				d := s.Plan(cfg).Delay
				if d < time.Duration(lo)*time.Millisecond || d > time.Duration(hi)*time.Millisecond {
					t.Fatalf("delay %v outside [%d,%d]ms", d, lo, hi)
				}
			}
		})
	}
}

func TestPlan_TimeoutTakesPrecedence(t *testing.T) {
	s := newTestSimulator()
	p := s.Plan(&models.MockConfig{
		SimulateTimeout:         true,
		TimeoutMs:               30,
		SimulateNetworkError:    true,
		NetworkErrorType:        models.NetworkConnectionReset,
		NetworkErrorProbability: 1,
	})

	if !p.Timeout || p.NetworkError {
		t.Fatalf("expected timeout only, got %+v", p)
	}
	if p.TimeoutAfter != 30*time.Millisecond {
		t.Errorf("expected 30ms timeout, got %v", p.TimeoutAfter)
	}
}

func TestPlan_NetworkErrorProbability(t *testing.T) {
	s := newTestSimulator()

	always := &models.MockConfig{SimulateNetworkError: true, NetworkErrorType: models.NetworkDNSFailure, NetworkErrorProbability: 1}
	never := &models.MockConfig{SimulateNetworkError: true, NetworkErrorType: models.NetworkDNSFailure, NetworkErrorProbability: 0}

	for i := 0; i < 100; i++ {
		if p := s.Plan(always); !p.NetworkError || p.ErrorKind != models.NetworkDNSFailure {
			t.Fatalf("probability 1 should always fail, got %+v", p)
		}
		if p := s.Plan(never); p.NetworkError {
			t.Fatal("probability 0 should never fail")
		}
	}
}

func TestApply_NetworkErrorIsImmediate(t *testing.T) {
	s := newTestSimulator()
	p := Plan{Delay: time.Hour, NetworkError: true, ErrorKind: models.NetworkConnectionRefused}

	start := time.Now()
	err := s.Apply(context.Background(), p)
	if time.Since(start) > time.Second {
		t.Error("network error should not wait for the delay")
	}

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Timeout || te.Kind != models.NetworkConnectionRefused {
		t.Errorf("unexpected transport error %+v", te)
	}
}

func TestApply_TimeoutWaits(t *testing.T) {
	s := newTestSimulator()
	p := Plan{Timeout: true, TimeoutAfter: 20 * time.Millisecond}

	start := time.Now()
	err := s.Apply(context.Background(), p)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected to wait at least 20ms, waited %v", elapsed)
	}
	if !IsTransportFailure(err) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}

func TestApply_NoFailure(t *testing.T) {
	s := newTestSimulator()
	if err := s.Apply(context.Background(), Plan{Delay: time.Hour}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWait_Cancelled(t *testing.T) {
	s := newTestSimulator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsTransportFailure(t *testing.T) {
	wrapped := fmt.Errorf("resolve: %w", &TransportError{Kind: models.NetworkHostUnreachable})
	if !IsTransportFailure(wrapped) {
		t.Error("expected wrapped transport error to be detected")
	}
	if IsTransportFailure(errors.New("boom")) {
		t.Error("plain error is not a transport failure")
	}
}
