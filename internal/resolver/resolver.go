// Package resolver walks an ordered chain of providers and returns the first
// usable quote.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stockquote/internal/config"
	"stockquote/internal/logger"
	"stockquote/internal/provider"
)

var (
	// ErrMissingCredential is returned by Build when the primary key is absent.
	ErrMissingCredential = config.ErrMissingCredential
	// ErrTimeout means the request deadline passed before a usable quote was found.
	ErrTimeout = errors.New("quote resolution timed out")
)

// Link is one step of the chain. Tier is fixed when the chain is built.
type Link struct {
	Tier     provider.Tier
	Provider provider.Provider
}

// Attempt records why a link did not satisfy the request.
type Attempt struct {
	Provider string
	Tier     provider.Tier
	Reason   string
}

// Resolution is the outcome of one Resolve call. OK is false when every
// link was unavailable; that is a result, not an error.
type Resolution struct {
	Symbol   string
	Quote    provider.Quote
	OK       bool
	Attempts []Attempt
}

// Source names the link that produced the quote, or "" when unresolved.
func (r Resolution) Source() string {
	if !r.OK {
		return ""
	}
	return r.Quote.Provider
}

type Resolver struct {
	links []Link
	log   logrus.FieldLogger
	now   func() time.Time
}

func New(log logrus.FieldLogger, links ...Link) *Resolver {
	if log == nil {
		log = logger.New()
	}
	return &Resolver{links: links, log: log, now: time.Now}
}

// Links returns the chain in priority order.
func (r *Resolver) Links() []Link {
	out := make([]Link, len(r.links))
	copy(out, r.links)
	return out
}

// Resolve tries each link in order and stops at the first usable quote.
// Links are never raced; a later link runs only after every earlier one
// came back unavailable.
func (r *Resolver) Resolve(ctx context.Context, symbol string) (Resolution, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res := Resolution{Symbol: symbol}
	if symbol == "" {
		return res, errors.New("empty ticker")
	}
	log := logger.FromContext(ctx, r.log).WithField("ticker", symbol)
	ctx = provider.WithReference(ctx, r.now())

	for _, link := range r.links {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("resolution abandoned")
			return res, fmt.Errorf("%w: %s", ErrTimeout, symbol)
		}

		name := link.Provider.Name()
		out := link.Provider.FetchQuote(ctx, symbol)
		if reason, ok := r.usable(out, symbol); !ok {
			res.Attempts = append(res.Attempts, Attempt{Provider: name, Tier: link.Tier, Reason: reason})
			log.WithFields(logrus.Fields{
				"provider": name,
				"tier":     link.Tier.String(),
				"reason":   reason,
			}).Info("provider unavailable, falling back")
			continue
		}

		q := out.Quote
		q.Symbol = symbol
		q.Tier = link.Tier
		if q.Provider == "" {
			q.Provider = name
		}
		q.ObservedAt = provider.NotAfter(q.ObservedAt, r.now())
		res.Quote = q
		res.OK = true
		log.WithFields(logrus.Fields{
			"provider": q.Provider,
			"tier":     q.Tier.String(),
			"delayed":  q.Delayed,
		}).Debug("quote resolved")
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("%w: %s", ErrTimeout, symbol)
	}
	log.WithField("attempts", len(res.Attempts)).Warn("all providers unavailable")
	return res, nil
}

// usable is the chain's own acceptance check, independent of what each
// provider already validated.
func (r *Resolver) usable(out provider.Result, symbol string) (string, bool) {
	if !out.OK {
		if out.Reason == "" {
			return "unavailable", false
		}
		return out.Reason, false
	}
	q := out.Quote
	if q.Symbol != "" && !provider.SameSymbol(q.Symbol, symbol) {
		return fmt.Sprintf("unexpected ticker %q", q.Symbol), false
	}
	if !q.Price.IsPositive() {
		return "non-positive price", false
	}
	if q.ObservedAt.IsZero() {
		return "missing timestamp", false
	}
	return "", true
}
