package yahoo

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

var (
	// ErrNoData means the chart had no result or no timestamps.
	ErrNoData = errors.New("yahoo: no data returned")
	// ErrSymbolMismatch means the chart meta reports a different ticker.
	ErrSymbolMismatch = errors.New("yahoo: symbol mismatch")
)

type Config struct {
	Name     string
	Endpoint string
	// APIKey is optional; set when the chart API sits behind a keyed gateway.
	APIKey string
	// Interval and Range select the bar size and trailing window.
	Interval string
	Range    string
	// SymbolMap maps internal symbols to Yahoo tickers, e.g. SPX -> ^GSPC.
	SymbolMap map[string]string
}

// Client reads the v8 chart API.
type Client struct {
	cfg    Config
	client httpx.Doer
}

func New(cfg Config, d httpx.Doer) *Client {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://query1.finance.yahoo.com"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	if cfg.Range == "" {
		cfg.Range = "2d"
	}
	return &Client{cfg: cfg, client: d}
}

func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) yahooSymbol(symbol string) string {
	if mapped, ok := c.cfg.SymbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// chartResponse is the response structure from the chart API.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []json.Number `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchIntraday returns the trailing intraday close series for symbol.
// Null bars are dropped; the result is sorted ascending.
func (c *Client) FetchIntraday(ctx context.Context, symbol string) (provider.Series, error) {
	ysym := c.yahooSymbol(symbol)
	q := url.Values{}
	q.Set("interval", c.cfg.Interval)
	q.Set("range", c.cfg.Range)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.cfg.Endpoint, url.PathEscape(ysym), q.Encode())

	header := http.Header{"User-Agent": []string{"Mozilla/5.0"}}
	if c.cfg.APIKey != "" {
		header.Set("X-API-KEY", c.cfg.APIKey)
	}

	var chart chartResponse
	if err := httpx.GetJSON(ctx, c.client, u, header, &chart); err != nil {
		return provider.Series{}, fmt.Errorf("yahoo chart %s: %w", ysym, err)
	}
	if chart.Chart.Error != nil {
		return provider.Series{}, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return provider.Series{}, ErrNoData
	}

	result := chart.Chart.Result[0]
	if !provider.SameSymbol(result.Meta.Symbol, ysym) {
		return provider.Series{}, fmt.Errorf("%w: asked %s, got %s", ErrSymbolMismatch, ysym, result.Meta.Symbol)
	}
	if len(result.Indicators.Quote) == 0 {
		return provider.Series{}, ErrNoData
	}

	closes := result.Indicators.Quote[0].Close
	series := provider.Series{Symbol: symbol, Samples: make([]provider.Sample, 0, len(result.Timestamp))}
	for i, ts := range result.Timestamp {
		if i >= len(closes) {
			break
		}
		price, ok := provider.ParsePrice(closes[i].String())
		if !ok {
			continue // null bar
		}
		series.Samples = append(series.Samples, provider.Sample{At: time.Unix(ts, 0), Close: price})
	}
	if len(series.Samples) == 0 {
		return provider.Series{}, ErrNoData
	}
	series.Sort()
	return series, nil
}
