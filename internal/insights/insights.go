// Package insights runs the external fundamentals/sentiment tool and shapes
// its JSON output.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var (
	ErrToolNotFound = errors.New("insights: tool not found")
	ErrNoJSON       = errors.New("insights: no JSON object in tool output")
	// ErrNotFound means the tool ran but had nothing for the ticker.
	ErrNotFound = errors.New("insights: no data for ticker")
)

// Runner invokes Command with Args followed by the ticker.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// Fetch runs the tool and decodes the first JSON object it prints.
func (r Runner) Fetch(ctx context.Context, ticker string) (map[string]any, error) {
	path, err := exec.LookPath(r.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, r.Command)
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string(nil), r.Args...), ticker)
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("insights: %s failed: %w: %s", r.Command, err, msg)
	}

	out := stdout.Bytes()
	if strings.TrimSpace(string(out)) == "null" {
		return nil, ErrNotFound
	}
	obj, ok := FirstObject(out)
	if !ok {
		return nil, ErrNoJSON
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		return nil, fmt.Errorf("insights: decode tool output: %w", err)
	}
	return m, nil
}

// FirstObject returns the first balanced {...} block in b. Braces inside
// JSON strings are ignored.
func FirstObject(b []byte) ([]byte, bool) {
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil, false
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[start : i+1], true
			}
		}
	}
	return nil, false
}

// Report is the /financial_insights response body.
type Report struct {
	Ticker              string `json:"ticker"`
	LatestPrice         any    `json:"latest_price"`
	SentimentSummary    any    `json:"sentiment_summary"`
	FinancialHighlights any    `json:"financialHighlights"`
	Rating              any    `json:"rating"`
	IncomeStatement     any    `json:"income_statement,omitempty"`
	BalanceSheet        any    `json:"balance_sheet,omitempty"`
	CashFlow            any    `json:"cash_flow,omitempty"`
}

// Shape fills a Report from raw tool output, defaulting missing fields.
// The statement sections are included only when detailed is set.
func Shape(ticker string, raw map[string]any, detailed bool) Report {
	r := Report{
		Ticker:              ticker,
		LatestPrice:         get(raw, "latest_price", 0.0),
		SentimentSummary:    get(raw, "sentiment_summary", "N/A"),
		FinancialHighlights: get(raw, "financialHighlights", map[string]any{}),
		Rating:              get(raw, "rating", "Unknown"),
	}
	if detailed {
		r.IncomeStatement = get(raw, "income_statement", map[string]any{})
		r.BalanceSheet = get(raw, "balance_sheet", map[string]any{})
		r.CashFlow = get(raw, "cash_flow", map[string]any{})
	}
	return r
}

func get(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok && v != nil {
		return v
	}
	return def
}
