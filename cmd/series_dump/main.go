package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"stockquote/internal/config"
	"stockquote/internal/httpx"
	"stockquote/internal/provider"
	"stockquote/internal/provider/yahoo"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env: %v\n", err)
	}
	if err := newCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		cfgPath string
		last    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:          "series_dump TICKER",
		Short:        "Print the intraday series used for delayed quotes",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(cfg.Market.Timezone)
			if err != nil {
				return fmt.Errorf("market timezone: %w", err)
			}
			client := yahoo.New(yahoo.Config{
				Endpoint:  cfg.Yahoo.Endpoint,
				APIKey:    cfg.Yahoo.APIKey,
				Interval:  cfg.Yahoo.Interval,
				Range:     cfg.Yahoo.Range,
				SymbolMap: cfg.Yahoo.SymbolMap,
			}, httpx.New(timeout))

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			series, err := client.FetchIntraday(ctx, strings.ToUpper(strings.TrimSpace(args[0])))
			if err != nil {
				return err
			}
			renderSeries(cmd.OutOrStdout(), series, loc, last)
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_FILE"), "path to config.yaml (optional)")
	cmd.Flags().IntVar(&last, "last", 30, "number of trailing samples to print (0 = all)")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Second, "HTTP timeout")
	return cmd
}

// renderSeries prints the trailing n samples in the exchange zone.
func renderSeries(w io.Writer, s provider.Series, loc *time.Location, n int) {
	samples := s.Samples
	if n > 0 && len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	fmt.Fprintf(w, "%s: %d samples (showing %d)\n", s.Symbol, len(s.Samples), len(samples))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Close"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, smp := range samples {
		table.Append([]string{smp.At.In(loc).Format("2006-01-02 15:04 MST"), provider.FormatPrice(smp.Close)})
	}
	table.Render()
}
