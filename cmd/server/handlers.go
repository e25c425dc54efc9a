package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"stockquote/internal/insights"
	"stockquote/internal/logger"
	"stockquote/internal/normalize"
	"stockquote/internal/resolver"
)

type quoteResolver interface {
	Resolve(ctx context.Context, symbol string) (resolver.Resolution, error)
}

type insightsFetcher interface {
	Fetch(ctx context.Context, ticker string) (map[string]any, error)
}

type server struct {
	quotes      quoteResolver
	insights    insightsFetcher
	log         *logrus.Logger
	timeout     time.Duration
	corsOrigins []string
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stock_quote", s.handleQuote).Methods(http.MethodGet)
	r.HandleFunc("/stock_quote/", s.handleQuote).Methods(http.MethodGet)
	r.HandleFunc("/financial_insights", s.handleInsights).Methods(http.MethodGet)
	r.HandleFunc("/financial_insights/", s.handleInsights).Methods(http.MethodGet)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return s.withCORS(s.withRequestID(withGzip(s.recoverPanic(limitBody(r)))))
}

func (s *server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the Financial Insights API!"})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleQuote(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "Ticker symbol cannot be empty")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.quotes.Resolve(ctx, ticker)
	if err != nil {
		log := logger.FromContext(r.Context(), s.log).WithField("ticker", ticker)
		if errors.Is(err, resolver.ErrTimeout) {
			log.WithError(err).Warn("quote timed out")
			writeError(w, http.StatusGatewayTimeout, "Timed out resolving quote for "+ticker)
			return
		}
		log.WithError(err).Error("quote failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	resp := normalize.FromResolution(res)
	if resp.Available() {
		w.Header().Set("X-Quote-Source", resp.Source)
		w.Header().Set("X-Quote-Tier", resp.Tier)
		w.Header().Set("X-Quote-Observed-At", resp.ObservedAt.UTC().Format(time.RFC3339))
		w.Header().Set("X-Quote-Delayed", strconv.FormatBool(resp.Delayed))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleInsights(w http.ResponseWriter, r *http.Request) {
	ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "Ticker symbol cannot be empty")
		return
	}
	detailed, _ := strconv.ParseBool(r.URL.Query().Get("detailed"))

	raw, err := s.insights.Fetch(r.Context(), ticker)
	if err != nil {
		log := logger.FromContext(r.Context(), s.log).WithField("ticker", ticker)
		if errors.Is(err, insights.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No data found for ticker: "+ticker)
			return
		}
		log.WithError(err).Error("insights failed")
		msg := "Internal server error"
		switch {
		case errors.Is(err, insights.ErrToolNotFound):
			msg = "Financial insights tool is not installed"
		case errors.Is(err, insights.ErrNoJSON):
			msg = "Financial insights tool returned no JSON"
		}
		writeError(w, http.StatusInternalServerError, msg)
		return
	}
	writeJSON(w, http.StatusOK, insights.Shape(ticker, raw, detailed))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, map[string]string{"detail": detail})
}
