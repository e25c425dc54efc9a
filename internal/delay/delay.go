// Package delay approximates a delayed quote from a trailing intraday series.
//
// The market open is a fixed wall-clock time in the exchange zone. Holidays
// and early closes are not modelled; outside trading hours the newest sample
// before the target is simply older.
package delay

import (
	"context"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"stockquote/internal/provider"
)

// Request is a single delayed-price lookup.
type Request struct {
	Symbol string
	Delay  time.Duration
	Now    time.Time
}

// Target is the as-of time the returned sample must not be newer than.
func (r Request) Target() time.Time { return r.Now.Add(-r.Delay) }

type Config struct {
	Delay time.Duration
	// Timezone is the exchange zone, e.g. America/New_York.
	Timezone string
	// Open is the nominal session open as HH:MM in Timezone.
	Open string
}

// Approximator serves delayed quotes from a provider.SeriesFetcher.
type Approximator struct {
	series     provider.SeriesFetcher
	delay      time.Duration
	loc        *time.Location
	openHour   int
	openMinute int

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Approximator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Approximator) { a.now = now }
}

// WithSleep replaces the context-aware timer wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Approximator) { a.sleep = sleep }
}

func New(series provider.SeriesFetcher, cfg Config, opts ...Option) (*Approximator, error) {
	if cfg.Delay < 0 {
		return nil, fmt.Errorf("delay: negative delay %s", cfg.Delay)
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "America/New_York"
	}
	if cfg.Open == "" {
		cfg.Open = "09:30"
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("delay: load timezone: %w", err)
	}
	open, err := time.Parse("15:04", cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("delay: parse open %q: %w", cfg.Open, err)
	}
	a := &Approximator{
		series:     series,
		delay:      cfg.Delay,
		loc:        loc,
		openHour:   open.Hour(),
		openMinute: open.Minute(),
		now:        time.Now,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *Approximator) Name() string { return a.series.Name() + "-delayed" }

// FetchQuote approximates the price Delay ago using the configured delay.
func (a *Approximator) FetchQuote(ctx context.Context, symbol string) provider.Result {
	return a.Approximate(ctx, symbol, a.delay)
}

// marketOpen is today's nominal open in the exchange zone.
func (a *Approximator) marketOpen(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, a.openHour, a.openMinute, 0, 0, a.loc)
}

// Approximate returns the latest sample at or before now-delay, where now
// is the resolution start recorded in ctx (provider.WithReference) or the
// clock. Before open+delay it waits for that threshold first; if the
// context deadline comes earlier it gives up without waiting.
func (a *Approximator) Approximate(ctx context.Context, symbol string, delay time.Duration) provider.Result {
	now := provider.Reference(ctx, a.now).In(a.loc)
	ready := a.marketOpen(now).Add(delay)
	if now.Before(ready) {
		wait := ready.Sub(now)
		if dl, ok := ctx.Deadline(); ok && dl.Sub(a.now()) < wait {
			return provider.Unavailable(fmt.Sprintf("market data not ready until %s", ready.Format(time.Kitchen)))
		}
		if err := a.sleep(ctx, wait); err != nil {
			return provider.Unavailable(fmt.Sprintf("waiting for market data: %v", err))
		}
		now = a.now().In(a.loc)
	}
	return a.selectSample(ctx, Request{Symbol: symbol, Delay: delay, Now: now})
}

func (a *Approximator) selectSample(ctx context.Context, req Request) provider.Result {
	series, err := a.series.FetchIntraday(ctx, req.Symbol)
	if err != nil {
		return provider.Unavailable(err.Error())
	}
	if len(series.Samples) == 0 {
		return provider.Unavailable("empty series")
	}
	series.Samples = slices.Clone(series.Samples)
	for i := range series.Samples {
		series.Samples[i].At = series.Samples[i].At.In(a.loc)
	}
	series.Sort()

	target := req.Target()
	s, ok := series.LatestAtOrBefore(target)
	if !ok {
		return provider.Unavailable(fmt.Sprintf("no data before %s", target.Format("2006-01-02 15:04:05 MST")))
	}
	return provider.Success(provider.Quote{
		Symbol:     req.Symbol,
		Price:      s.Close,
		Provider:   a.Name(),
		ObservedAt: s.At,
		Delayed:    true,
	})
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
