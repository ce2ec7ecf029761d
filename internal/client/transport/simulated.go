package transport

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

var errSimulatedFailure = errors.New("simulated network failure")

// Simulated waits Latency and then fails with probability FailureRate.
type Simulated struct {
	Latency     time.Duration
	FailureRate float64

	// rnd returns a value in [0,1).
	rnd func() float64
}

func NewSimulated(latency time.Duration, failureRate float64) *Simulated {
	return &Simulated{Latency: latency, FailureRate: failureRate, rnd: rand.Float64}
}

func (t *Simulated) Send(ctx context.Context, p Payload) error {
	if t.Latency > 0 {
		timer := time.NewTimer(t.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return transferErr(ctx.Err())
		case <-timer.C:
		}
	}

	rnd := t.rnd
	if rnd == nil {
		rnd = rand.Float64
	}
	if rnd() < t.FailureRate {
		return transferErr(errSimulatedFailure)
	}
	return nil
}
