package transport

import (
	"context"
	"time"
)

// Observation summarizes one completed request.
type Observation struct {
	Method    string
	Path      string
	Status    int
	Kind      Kind
	Duration  time.Duration
	RequestID string
}

// Observer receives request observations, e.g. for metrics.
type Observer interface {
	ObserveRequest(ctx context.Context, obs Observation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, obs Observation)

// ObserveRequest implements Observer.
func (f ObserverFunc) ObserveRequest(ctx context.Context, obs Observation) {
	if f != nil {
		f(ctx, obs)
	}
}

// Observers fans one observation out to several observers.
type Observers []Observer

// ObserveRequest implements Observer.
func (o Observers) ObserveRequest(ctx context.Context, obs Observation) {
	for _, observer := range o {
		if observer != nil {
			observer.ObserveRequest(ctx, obs)
		}
	}
}
