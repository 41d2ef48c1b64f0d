package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited throttles a backend to a steady request rate.
type Limited struct {
	next    Backend
	limiter *rate.Limiter
}

// NewLimited wraps next. A non-positive rate disables throttling.
func NewLimited(next Backend, perSecond float64) Backend {
	if perSecond <= 0 {
		return next
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Complete waits for a token (or ctx) before delegating.
func (l *Limited) Complete(ctx context.Context, req Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.next.Complete(ctx, req)
}
