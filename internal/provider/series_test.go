package provider

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSeries_LatestAtOrBefore(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 3, 4, 14, 44, 0, 0, time.UTC)
	s := Series{Samples: []Sample{
		{At: base.Add(2 * time.Minute), Close: decimal.RequireFromString("3")},
		{At: base, Close: decimal.RequireFromString("1")},
		{At: base.Add(time.Minute), Close: decimal.RequireFromString("2")},
	}}
	s.Sort()

	got, ok := s.LatestAtOrBefore(base.Add(90 * time.Second))
	require.True(t, ok)
	require.Equal(t, "2", got.Close.String())

	got, ok = s.LatestAtOrBefore(base.Add(time.Minute))
	require.True(t, ok)
	require.Equal(t, "2", got.Close.String(), "a sample exactly at the target counts")

	_, ok = s.LatestAtOrBefore(base.Add(-time.Second))
	require.False(t, ok)

	_, ok = Series{}.LatestAtOrBefore(base)
	require.False(t, ok)
}
