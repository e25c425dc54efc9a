package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"stockquote/internal/provider"
)

// Budget wraps a provider with a request budget. When the budget is spent
// the call is reported Unavailable at once so the fallback chain moves on
// instead of waiting for a token.
type Budget struct {
	P provider.Provider
	L *rate.Limiter
}

// PerMinute builds a Budget allowing rpm calls per minute with the given burst.
// A non-positive rpm returns p unchanged.
func PerMinute(p provider.Provider, rpm, burst int) provider.Provider {
	if rpm <= 0 {
		return p
	}
	if burst <= 0 {
		burst = 1
	}
	return &Budget{P: p, L: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)}
}

func (b *Budget) Name() string { return b.P.Name() }

func (b *Budget) FetchQuote(ctx context.Context, symbol string) provider.Result {
	if b.L != nil && !b.L.Allow() {
		return provider.Unavailable("rate limited")
	}
	return b.P.FetchQuote(ctx, symbol)
}
