package alphavantage

import (
	"context"
	"fmt"
	"time"

	"stockquote/internal/provider"
)

// Provider adapts the GLOBAL_QUOTE endpoint to provider.Provider.
type Provider struct {
	client *Client
	name   string
	now    func() time.Time
}

func NewProvider(client *Client) *Provider {
	return &Provider{client: client, name: "alphavantage", now: time.Now}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) FetchQuote(ctx context.Context, symbol string) provider.Result {
	gq, err := p.client.GlobalQuote(ctx, symbol)
	if err != nil {
		return provider.Unavailable(err.Error())
	}
	if gq.Symbol != "" && !provider.SameSymbol(gq.Symbol, symbol) {
		return provider.Unavailable(fmt.Sprintf("quote for unexpected ticker %q", gq.Symbol))
	}
	price, ok := provider.ParsePrice(gq.Price)
	if !ok {
		return provider.Unavailable(fmt.Sprintf("no usable price %q", gq.Price))
	}
	return provider.Success(provider.Quote{
		Symbol:     symbol,
		Price:      price,
		Provider:   p.name,
		ObservedAt: p.now(),
	})
}
