package alphavantage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoQuote means the response had no "Global Quote" object or it was empty.
var ErrNoQuote = errors.New("alphavantage: global quote missing")

// GlobalQuote is the subset of the GLOBAL_QUOTE payload the service uses.
// Price is left as text; "N/A" and "" are possible.
type GlobalQuote struct {
	Symbol           string
	Price            string
	LatestTradingDay string
}

type globalQuoteResponse struct {
	advisory
	GlobalQuote map[string]any `json:"Global Quote"`
}

// GlobalQuote retrieves the latest quote for symbol.
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (GlobalQuote, error) {
	var res globalQuoteResponse
	if err := c.query(ctx, "GLOBAL_QUOTE", symbol, &res); err != nil {
		return GlobalQuote{}, fmt.Errorf("global quote %s: %w", symbol, err)
	}
	if err := res.err(); err != nil {
		return GlobalQuote{}, err
	}
	if len(res.GlobalQuote) == 0 {
		return GlobalQuote{}, ErrNoQuote
	}
	return GlobalQuote{
		Symbol:           field(res.GlobalQuote, "01. symbol"),
		Price:            field(res.GlobalQuote, "05. price"),
		LatestTradingDay: field(res.GlobalQuote, "07. latest trading day"),
	}, nil
}
