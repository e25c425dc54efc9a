package alphavantage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"stockquote/internal/provider"
)

// ErrNoDailyData means the daily series was missing or had no usable close.
var ErrNoDailyData = errors.New("alphavantage: no daily data")

// DailyClose is the most recent adjusted close of a daily series.
type DailyClose struct {
	Date          string
	AdjustedClose decimal.Decimal
}

type dailyAdjustedResponse struct {
	advisory
	Series map[string]map[string]any `json:"Time Series (Daily)"`
}

// DailyAdjustedClose returns the adjusted close of the latest trading day.
func (c *Client) DailyAdjustedClose(ctx context.Context, symbol string) (DailyClose, error) {
	var res dailyAdjustedResponse
	if err := c.query(ctx, "TIME_SERIES_DAILY_ADJUSTED", symbol, &res); err != nil {
		return DailyClose{}, fmt.Errorf("daily adjusted %s: %w", symbol, err)
	}
	if err := res.err(); err != nil {
		return DailyClose{}, err
	}

	// dates are YYYY-MM-DD so the lexical max is the latest
	latest := ""
	for date := range res.Series {
		if date > latest {
			latest = date
		}
	}
	if latest == "" {
		return DailyClose{}, ErrNoDailyData
	}
	price, ok := provider.ParsePrice(field(res.Series[latest], "5. adjusted close"))
	if !ok {
		return DailyClose{}, fmt.Errorf("%w: bad adjusted close on %s", ErrNoDailyData, latest)
	}
	return DailyClose{Date: latest, AdjustedClose: price}, nil
}
