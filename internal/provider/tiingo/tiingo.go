package tiingo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockquote/internal/httpx"
	"stockquote/internal/provider"
)

// ErrMissingAPIKey is returned by New when no token is configured.
var ErrMissingAPIKey = errors.New("tiingo: api key not set")

type Config struct {
	Name     string
	Endpoint string
	APIKey   string
}

// Provider reads IEX top-of-book snapshots. A ticker with no IEX
// entitlement comes back as an empty list.
type Provider struct {
	cfg    Config
	client httpx.Doer
	now    func() time.Time
}

func New(cfg Config, d httpx.Doer) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Name == "" {
		cfg.Name = "tiingo"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.tiingo.com"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &Provider{cfg: cfg, client: d, now: time.Now}, nil
}

func (p *Provider) Name() string { return p.cfg.Name }

type snapshot struct {
	Ticker    string      `json:"ticker"`
	Timestamp string      `json:"timestamp"`
	Last      json.Number `json:"last"`
}

func (p *Provider) FetchQuote(ctx context.Context, symbol string) provider.Result {
	q := url.Values{}
	q.Set("tickers", symbol)
	q.Set("token", p.cfg.APIKey)
	u := fmt.Sprintf("%s/iex/?%s", p.cfg.Endpoint, q.Encode())

	var snaps []snapshot
	header := http.Header{"Content-Type": []string{"application/json"}}
	if err := httpx.GetJSON(ctx, p.client, u, header, &snaps); err != nil {
		return provider.Unavailable(err.Error())
	}
	if len(snaps) == 0 {
		return provider.Unavailable("no IEX data")
	}

	s := snaps[0]
	if !provider.SameSymbol(s.Ticker, symbol) {
		return provider.Unavailable(fmt.Sprintf("data for unexpected ticker %q", s.Ticker))
	}
	price, ok := provider.ParsePrice(s.Last.String())
	if !ok {
		return provider.Unavailable(fmt.Sprintf("no usable last price %q", s.Last.String()))
	}
	ts, err := time.Parse(time.RFC3339Nano, s.Timestamp)
	if err != nil {
		return provider.Unavailable(fmt.Sprintf("bad timestamp %q", s.Timestamp))
	}

	return provider.Success(provider.Quote{
		Symbol:     symbol,
		Price:      price,
		Provider:   p.cfg.Name,
		ObservedAt: provider.NotAfter(ts, p.now()),
	})
}
