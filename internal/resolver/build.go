package resolver

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"stockquote/internal/config"
	"stockquote/internal/delay"
	"stockquote/internal/httpx"
	"stockquote/internal/provider"
	"stockquote/internal/provider/alphavantage"
	"stockquote/internal/provider/ratelimit"
	"stockquote/internal/provider/tiingo"
	"stockquote/internal/provider/yahoo"
)

// Build assembles the Alpha Vantage -> Tiingo -> delayed Yahoo chain from cfg.
// A missing primary key fails with ErrMissingCredential; a missing Tiingo
// key drops that link with a warning.
func Build(cfg config.Config, hc httpx.Doer, log logrus.FieldLogger) (*Resolver, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var links []Link

	av, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
		alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
		alphavantage.WithHTTPClient(hc),
	)
	if err != nil {
		if errors.Is(err, alphavantage.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: ALPHA_VANTAGE_API_KEY", ErrMissingCredential)
		}
		return nil, fmt.Errorf("alphavantage: %w", err)
	}
	links = append(links, Link{
		Tier:     provider.TierPrimary,
		Provider: budget(alphavantage.NewProvider(av), cfg.AlphaVantage),
	})

	ti, err := tiingo.New(tiingo.Config{Endpoint: cfg.Tiingo.Endpoint, APIKey: cfg.Tiingo.APIKey}, hc)
	switch {
	case errors.Is(err, tiingo.ErrMissingAPIKey):
		log.WithField("provider", "tiingo").Warn("TIINGO_API_KEY not set; skipping secondary provider")
	case err != nil:
		return nil, fmt.Errorf("tiingo: %w", err)
	default:
		links = append(links, Link{Tier: provider.TierSecondary, Provider: budget(ti, cfg.Tiingo)})
	}

	series := yahoo.New(yahoo.Config{
		Endpoint:  cfg.Yahoo.Endpoint,
		APIKey:    cfg.Yahoo.APIKey,
		Interval:  cfg.Yahoo.Interval,
		Range:     cfg.Yahoo.Range,
		SymbolMap: cfg.Yahoo.SymbolMap,
	}, hc)
	approx, err := delay.New(series, delay.Config{
		Delay:    cfg.Delay(),
		Timezone: cfg.Market.Timezone,
		Open:     cfg.Market.Open,
	})
	if err != nil {
		return nil, err
	}
	links = append(links, Link{Tier: provider.TierTertiary, Provider: budget(approx, cfg.Yahoo.Provider)})

	return New(log, links...), nil
}

func budget(p provider.Provider, c config.Provider) provider.Provider {
	return ratelimit.PerMinute(p, c.MaxRequestsPerMinute, c.Burst)
}
