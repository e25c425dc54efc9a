package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"stockquote/internal/config"
	"stockquote/internal/delay"
	"stockquote/internal/httpx"
	"stockquote/internal/logger"
	"stockquote/internal/normalize"
	"stockquote/internal/provider"
	"stockquote/internal/provider/alphavantage"
	"stockquote/internal/provider/yahoo"
	"stockquote/internal/resolver"
)

type options struct {
	configPath string
	timeout    time.Duration
	asTable    bool
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "fetch",
		Short:         "Query the stock quote providers from the command line",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall timeout")
	root.PersistentFlags().BoolVar(&opts.asTable, "table", false, "print a table instead of JSON")

	root.AddCommand(newQuoteCmd(opts), newDelayedCmd(opts), newDailyCmd(opts))
	return root
}

func load(opts *options) (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, nil, err
	}
	log := logger.New()
	// keep stdout for results
	cfg.Logging.Output = "stderr"
	if err := logger.Configure(log, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, 0); err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func newQuoteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "quote TICKER [TICKER...]",
		Short: "Resolve tickers through the full provider chain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(opts)
			if err != nil {
				return err
			}
			chain, err := resolver.Build(cfg, httpx.New(cfg.RequestTimeout()), log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			var all []resolver.Resolution
			for _, t := range args {
				res, err := chain.Resolve(ctx, t)
				if err != nil {
					return err
				}
				all = append(all, res)
			}
			return printResponses(cmd.OutOrStdout(), normalize.Many(all), opts.asTable)
		},
	}
}

func newDelayedCmd(opts *options) *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "delayed TICKER",
		Short: "Approximate a delayed price from the intraday series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load(opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("delay") {
				cfg.Quote.DelayMinutes = minutes
			}
			series := yahoo.New(yahoo.Config{
				Endpoint:  cfg.Yahoo.Endpoint,
				APIKey:    cfg.Yahoo.APIKey,
				Interval:  cfg.Yahoo.Interval,
				Range:     cfg.Yahoo.Range,
				SymbolMap: cfg.Yahoo.SymbolMap,
			}, httpx.New(cfg.RequestTimeout()))
			approx, err := delay.New(series, delay.Config{Delay: cfg.Delay(), Timezone: cfg.Market.Timezone, Open: cfg.Market.Open})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			res := approx.FetchQuote(ctx, symbol)
			if !res.OK {
				return fmt.Errorf("%s: %s", symbol, res.Reason)
			}
			res.Quote.Tier = provider.TierTertiary
			r := normalize.FromResolution(resolver.Resolution{Symbol: symbol, Quote: res.Quote, OK: true})
			return printResponses(cmd.OutOrStdout(), []normalize.Response{r}, opts.asTable)
		},
	}
	cmd.Flags().IntVar(&minutes, "delay", 15, "delay in minutes")
	return cmd
}

func newDailyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "daily TICKER",
		Short: "Print the latest daily adjusted close from the primary provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := load(opts)
			if err != nil {
				return err
			}
			client, err := alphavantage.NewClient(cfg.AlphaVantage.APIKey,
				alphavantage.WithBaseURL(cfg.AlphaVantage.Endpoint),
				alphavantage.WithHTTPClient(httpx.New(cfg.RequestTimeout())),
			)
			if err != nil {
				return fmt.Errorf("%w: %v", config.ErrMissingCredential, err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			symbol := strings.ToUpper(strings.TrimSpace(args[0]))
			dc, err := client.DailyAdjustedClose(ctx, symbol)
			if err != nil {
				return err
			}
			if opts.asTable {
				table := tablewriter.NewWriter(cmd.OutOrStdout())
				table.SetHeader([]string{"Ticker", "Date", "Adjusted close"})
				table.Append([]string{symbol, dc.Date, provider.FormatPrice(dc.AdjustedClose)})
				table.Render()
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"ticker":         symbol,
				"date":           dc.Date,
				"adjusted_close": provider.FormatPrice(dc.AdjustedClose),
			})
		},
	}
}

func printResponses(w io.Writer, rs []normalize.Response, asTable bool) error {
	if !asTable {
		if len(rs) == 1 {
			return writeJSON(w, rs[0])
		}
		return writeJSON(w, rs)
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Ticker", "Latest price", "Source", "Tier", "Observed at"})
	for _, r := range rs {
		observed := ""
		if !r.ObservedAt.IsZero() {
			observed = r.ObservedAt.Format(time.RFC3339)
		}
		table.Append([]string{r.Ticker, r.LatestPrice, r.Source, r.Tier, observed})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
