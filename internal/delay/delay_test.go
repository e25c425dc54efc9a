package delay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"stockquote/internal/provider"
)

var newYork = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 3, 4, hour, minute, 0, 0, newYork)
}

type stubSeries struct {
	series provider.Series
	err    error
	calls  int
}

func (s *stubSeries) Name() string { return "stub" }

func (s *stubSeries) FetchIntraday(_ context.Context, _ string) (provider.Series, error) {
	s.calls++
	return s.series, s.err
}

func sample(ts time.Time, close string) provider.Sample {
	return provider.Sample{At: ts, Close: decimal.RequireFromString(close)}
}

// fakeClock returns now until sleep advances it.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newApproximator(t *testing.T, s provider.SeriesFetcher, clock *fakeClock) *Approximator {
	t.Helper()

	a, err := New(s, Config{Delay: 15 * time.Minute}, WithClock(clock.Now), WithSleep(clock.Sleep))
	require.NoError(t, err)
	return a
}

func TestApproximate_PicksLatestSampleBeforeTarget(t *testing.T) {
	t.Parallel()

	// samples straddle the 09:45 target; the feed is in UTC
	s := &stubSeries{series: provider.Series{Symbol: "AAPL", Samples: []provider.Sample{
		sample(at(9, 46).UTC(), "101.00"),
		sample(at(9, 44).UTC(), "100.50"),
		sample(at(9, 31).UTC(), "99.00"),
	}}}
	clock := &fakeClock{now: at(10, 0)}
	a := newApproximator(t, s, clock)

	res := a.FetchQuote(t.Context(), "AAPL")

	require.True(t, res.OK, res.Reason)
	require.Empty(t, clock.slept)
	require.Equal(t, "100.50", provider.FormatPrice(res.Quote.Price))
	require.True(t, res.Quote.Delayed)
	require.True(t, res.Quote.ObservedAt.Equal(at(9, 44)))
	require.Equal(t, "America/New_York", res.Quote.ObservedAt.Location().String())
	require.Equal(t, "stub-delayed", res.Quote.Provider)
}

func TestApproximate_WaitsUntilOpenPlusDelay(t *testing.T) {
	t.Parallel()

	s := &stubSeries{series: provider.Series{Symbol: "AAPL", Samples: []provider.Sample{
		sample(at(9, 30), "10"),
		sample(at(9, 31), "11"),
	}}}
	clock := &fakeClock{now: at(9, 35)}
	a := newApproximator(t, s, clock)

	res := a.FetchQuote(t.Context(), "AAPL")

	require.Equal(t, []time.Duration{10 * time.Minute}, clock.slept)
	require.True(t, res.OK, res.Reason)
	require.Equal(t, "10", res.Quote.Price.String(), "target after waiting is 09:30")
}

func TestApproximate_UsesPreviousSessionBeforeTargetToday(t *testing.T) {
	t.Parallel()

	yesterdayClose := time.Date(2025, 3, 3, 15, 59, 0, 0, newYork)
	s := &stubSeries{series: provider.Series{Samples: []provider.Sample{
		sample(yesterdayClose, "50.25"),
		sample(at(9, 50), "51"),
	}}}
	clock := &fakeClock{now: at(9, 50)}
	a := newApproximator(t, s, clock)

	res := a.FetchQuote(t.Context(), "AAPL")

	require.True(t, res.OK, res.Reason)
	require.True(t, res.Quote.ObservedAt.Equal(yesterdayClose))
}

func TestApproximate_Unavailable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		series *stubSeries
		reason string
	}{
		{"empty series", &stubSeries{}, "empty series"},
		{"fetch error", &stubSeries{err: errors.New("yahoo: no data returned")}, "no data returned"},
		{"nothing before target", &stubSeries{series: provider.Series{Samples: []provider.Sample{sample(at(9, 46), "1")}}}, "no data before"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := newApproximator(t, tc.series, &fakeClock{now: at(10, 0)})
			res := a.FetchQuote(t.Context(), "XYZ")
			require.False(t, res.OK)
			require.Contains(t, res.Reason, tc.reason)
		})
	}
}

func TestApproximate_DeadlineBeforeThresholdSkipsWait(t *testing.T) {
	t.Parallel()

	s := &stubSeries{}
	clock := &fakeClock{now: at(8, 0)}
	a := newApproximator(t, s, clock)

	// deadline one second after the injected now, far before 09:45
	ctx, cancel := context.WithDeadline(t.Context(), clock.now.Add(time.Second))
	defer cancel()
	res := a.FetchQuote(ctx, "AAPL")

	require.False(t, res.OK)
	require.Contains(t, res.Reason, "not ready")
	require.Empty(t, clock.slept)
	require.Zero(t, s.calls)
}

func TestApproximate_DeadlineAfterThresholdWaits(t *testing.T) {
	t.Parallel()

	s := &stubSeries{series: provider.Series{Samples: []provider.Sample{sample(at(9, 30), "10")}}}
	clock := &fakeClock{now: at(9, 40)}
	a := newApproximator(t, s, clock)

	// the deadline is judged against the injected clock, not wall time
	ctx, cancel := context.WithDeadline(t.Context(), clock.now.Add(time.Hour))
	defer cancel()
	res := a.FetchQuote(ctx, "AAPL")

	require.Equal(t, []time.Duration{5 * time.Minute}, clock.slept)
	require.True(t, res.OK, res.Reason)
}

func TestApproximate_MeasuresFromResolutionStart(t *testing.T) {
	t.Parallel()

	// the clock has moved on to 10:00:30 while earlier providers ran;
	// the 09:45:15 bar is under 15 minutes older than the 10:00 start
	s := &stubSeries{series: provider.Series{Samples: []provider.Sample{
		sample(at(9, 44), "100.50"),
		sample(at(9, 45).Add(15*time.Second), "101.00"),
	}}}
	clock := &fakeClock{now: at(10, 0).Add(30 * time.Second)}
	a := newApproximator(t, s, clock)

	ctx := provider.WithReference(t.Context(), at(10, 0))
	res := a.FetchQuote(ctx, "AAPL")

	require.True(t, res.OK, res.Reason)
	require.Equal(t, "100.50", provider.FormatPrice(res.Quote.Price))
	require.GreaterOrEqual(t, at(10, 0).Sub(res.Quote.ObservedAt), 15*time.Minute)
}

func TestApproximate_SleepCanceled(t *testing.T) {
	t.Parallel()

	s := &stubSeries{}
	a, err := New(s, Config{Delay: 15 * time.Minute},
		WithClock(func() time.Time { return at(9, 0) }),
		WithSleep(func(ctx context.Context, _ time.Duration) error { return context.Canceled }),
	)
	require.NoError(t, err)

	res := a.FetchQuote(t.Context(), "AAPL")
	require.False(t, res.OK)
	require.Contains(t, res.Reason, "canceled")
	require.Zero(t, s.calls)
}

func TestApproximate_Idempotent(t *testing.T) {
	t.Parallel()

	s := &stubSeries{series: provider.Series{Samples: []provider.Sample{sample(at(9, 40), "12.5")}}}
	a := newApproximator(t, s, &fakeClock{now: at(11, 0)})

	first := a.FetchQuote(t.Context(), "AAPL")
	second := a.FetchQuote(t.Context(), "AAPL")
	require.Equal(t, first, second)
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(&stubSeries{}, Config{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = New(&stubSeries{}, Config{Open: "9h30"})
	require.Error(t, err)

	_, err = New(&stubSeries{}, Config{Delay: -time.Minute})
	require.Error(t, err)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	require.NoError(t, sleepContext(t.Context(), time.Millisecond))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
