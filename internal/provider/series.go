package provider

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one intraday bar close.
type Sample struct {
	At    time.Time
	Close decimal.Decimal
}

// Series is an intraday close series, ascending by time.
type Series struct {
	Symbol  string
	Samples []Sample
}

// SeriesFetcher returns a short-interval trailing series for a symbol.
type SeriesFetcher interface {
	Name() string
	FetchIntraday(ctx context.Context, symbol string) (Series, error)
}

// Sort orders samples by time, keeping input order for equal timestamps.
func (s *Series) Sort() {
	sort.SliceStable(s.Samples, func(i, j int) bool { return s.Samples[i].At.Before(s.Samples[j].At) })
}

// LatestAtOrBefore returns the last sample with At <= t. Samples must be sorted.
func (s Series) LatestAtOrBefore(t time.Time) (Sample, bool) {
	i := sort.Search(len(s.Samples), func(i int) bool { return s.Samples[i].At.After(t) })
	if i == 0 {
		return Sample{}, false
	}
	return s.Samples[i-1], true
}
