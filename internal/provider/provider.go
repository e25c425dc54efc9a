package provider

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Tier is the position a provider holds in the fallback chain.
type Tier int

const (
	TierUnknown Tier = iota
	TierPrimary
	TierSecondary
	TierTertiary
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "PRIMARY"
	case TierSecondary:
		return "SECONDARY"
	case TierTertiary:
		return "TERTIARY"
	default:
		return "UNKNOWN"
	}
}

// Quote is the normalized shape returned by all providers.
// Price keeps the upstream precision; it is never rounded.
type Quote struct {
	Symbol     string          `json:"symbol"`
	Price      decimal.Decimal `json:"price"`
	Provider   string          `json:"provider"`
	Tier       Tier            `json:"tier"`
	ObservedAt time.Time       `json:"observed_at"`
	Delayed    bool            `json:"delayed"`
}

// Result is either a usable Quote or Unavailable with a reason.
type Result struct {
	Quote  Quote
	OK     bool
	Reason string
}

func Success(q Quote) Result { return Result{Quote: q, OK: true} }

func Unavailable(reason string) Result { return Result{Reason: reason} }

// Provider fetches the best current price for one symbol.
// Expected failures (network, status, payload, rate limits) come back as
// Unavailable; FetchQuote never panics on upstream data.
type Provider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) Result
}

// placeholders upstreams use instead of a number
var noPrice = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"na":   {},
	"null": {},
	"none": {},
	"nan":  {},
	"-":    {},
}

// ParsePrice parses an upstream price string. Placeholders such as "N/A",
// unparsable text and non-positive values are rejected.
func ParsePrice(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if _, ok := noPrice[strings.ToLower(s)]; ok {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}

// NotAfter clamps ts so no quote is dated after now.
func NotAfter(ts, now time.Time) time.Time {
	if ts.IsZero() || ts.After(now) {
		return now
	}
	return ts
}

// FormatPrice renders a price with every digit the provider sent.
func FormatPrice(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

type referenceKey struct{}

// WithReference records the instant a resolution started. Providers that
// reason about elapsed time measure from it.
func WithReference(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, referenceKey{}, t)
}

// Reference returns the instant stored by WithReference, or now().
func Reference(ctx context.Context, now func() time.Time) time.Time {
	if t, ok := ctx.Value(referenceKey{}).(time.Time); ok && !t.IsZero() {
		return t
	}
	return now()
}

// SameSymbol compares tickers case-insensitively.
func SameSymbol(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
