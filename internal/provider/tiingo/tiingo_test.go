package tiingo

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stockquote/internal/httpx/httpxmock"
)

var fixedNow = time.Date(2025, 3, 4, 16, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, code int, body string) *Provider {
	t.Helper()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockDoer(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/iex/", req.URL.Path)
			require.Equal(t, "tok", req.URL.Query().Get("token"))
			require.NotEmpty(t, req.URL.Query().Get("tickers"))
			return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}, nil
		}).
		Times(1)

	p, err := New(Config{APIKey: "tok", Endpoint: "http://tiingo.test/"}, httpClient)
	require.NoError(t, err)
	p.now = func() time.Time { return fixedNow }
	return p
}

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, nil)
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFetchQuote_Success(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.StatusOK, `[{"ticker":"aapl","timestamp":"2025-03-04T10:59:59.5-05:00","last":187.25,"prevClose":185.1}]`)

	res := p.FetchQuote(t.Context(), "AAPL")
	require.True(t, res.OK, res.Reason)
	require.Equal(t, "187.25", res.Quote.Price.String())
	require.Equal(t, "tiingo", res.Quote.Provider)
	require.True(t, res.Quote.ObservedAt.Equal(time.Date(2025, 3, 4, 15, 59, 59, 500_000_000, time.UTC)))
}

func TestFetchQuote_FutureTimestampIsClamped(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t, http.StatusOK, `[{"ticker":"AAPL","timestamp":"2025-03-04T17:00:00Z","last":187.25}]`)

	res := p.FetchQuote(t.Context(), "AAPL")
	require.True(t, res.OK)
	require.Equal(t, fixedNow, res.Quote.ObservedAt)
}

func TestFetchQuote_Unavailable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		code   int
		body   string
		reason string
	}{
		{"empty list", http.StatusOK, `[]`, "no IEX data"},
		{"ticker mismatch", http.StatusOK, `[{"ticker":"AAPI","timestamp":"2025-03-04T15:00:00Z","last":1}]`, "unexpected ticker"},
		{"null last", http.StatusOK, `[{"ticker":"AAPL","timestamp":"2025-03-04T15:00:00Z","last":null}]`, "no usable last price"},
		{"missing last", http.StatusOK, `[{"ticker":"AAPL","timestamp":"2025-03-04T15:00:00Z"}]`, "no usable last price"},
		{"bad timestamp", http.StatusOK, `[{"ticker":"AAPL","timestamp":"yesterday","last":1}]`, "bad timestamp"},
		{"unauthorized", http.StatusUnauthorized, `{"detail":"Invalid token."}`, "http 401"},
		{"object instead of list", http.StatusOK, `{"detail":"Error"}`, "decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := newTestProvider(t, tc.code, tc.body)
			res := p.FetchQuote(t.Context(), "AAPL")
			require.False(t, res.OK)
			require.Contains(t, res.Reason, tc.reason)
		})
	}
}

func TestFetchQuote_OutageReasonHidesToken(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := httpxmock.NewMockDoer(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: errors.New("connection refused")}
		}).
		Times(1)

	p, err := New(Config{APIKey: "TIINGO-SECRET-456", Endpoint: "http://127.0.0.1:1"}, httpClient)
	require.NoError(t, err)

	res := p.FetchQuote(t.Context(), "AAPL")
	require.False(t, res.OK)
	require.Contains(t, res.Reason, "connection refused")
	require.NotContains(t, res.Reason, "TIINGO-SECRET-456")
}
