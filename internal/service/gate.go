package service

import (
	"context"
	"time"
)

// IntakeGate rejects a client's submission when its previous one is too recent
type IntakeGate struct {
	requests RequestStore
	window   time.Duration
}

func NewIntakeGate(requests RequestStore, window time.Duration) *IntakeGate {
	return &IntakeGate{requests: requests, window: window}
}

// Allow returns nil when clientID may submit at now. A request exactly window
// old still blocks.
func (g *IntakeGate) Allow(ctx context.Context, clientID string, now time.Time) error {
	latest, err := g.requests.LatestRequest(ctx, clientID)
	if err != nil {
		return newError(KindInternal, "failed to load latest request", err)
	}
	if latest == nil {
		return nil
	}
	if now.Sub(latest.CreatedAt) <= g.window {
		return newError(KindRateLimited, "Too many requests, please wait before submitting again", nil)
	}
	return nil
}
