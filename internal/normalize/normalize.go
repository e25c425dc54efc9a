package normalize

import (
	"sort"
	"strings"
	"time"

	"stockquote/internal/provider"
	"stockquote/internal/resolver"
)

// NotAvailable is the latest_price value when no provider had a usable quote.
const NotAvailable = "N/A"

// Response is the caller-visible quote. Only ticker and latest_price are
// part of the JSON body; Source, Tier, Delayed and ObservedAt are metadata the
// HTTP layer sends as headers.
type Response struct {
	Ticker      string `json:"ticker"`
	LatestPrice string `json:"latest_price"`

	Source     string    `json:"-"`
	Tier       string    `json:"-"`
	Delayed    bool      `json:"-"`
	ObservedAt time.Time `json:"-"`
}

// Available reports whether LatestPrice holds a real price.
func (r Response) Available() bool { return r.LatestPrice != NotAvailable }

// FromResolution packages a resolution. An unresolved one yields the
// NotAvailable sentinel rather than an error.
func FromResolution(res resolver.Resolution) Response {
	ticker := strings.ToUpper(strings.TrimSpace(res.Symbol))
	if !res.OK {
		return Response{Ticker: ticker, LatestPrice: NotAvailable}
	}
	q := res.Quote
	return Response{
		Ticker:      ticker,
		LatestPrice: provider.FormatPrice(q.Price),
		Source:      q.Provider,
		Tier:        q.Tier.String(),
		Delayed:     q.Delayed,
		ObservedAt:  q.ObservedAt,
	}
}

// Many normalizes several resolutions, ordered by ticker. For a repeated
// ticker the later resolution wins.
func Many(in []resolver.Resolution) []Response {
	byTicker := make(map[string]Response, len(in))
	for _, res := range in {
		r := FromResolution(res)
		byTicker[r.Ticker] = r
	}
	out := make([]Response, 0, len(byTicker))
	for _, r := range byTicker {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
