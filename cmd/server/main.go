package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stockquote/internal/config"
	"stockquote/internal/httpx"
	"stockquote/internal/insights"
	"stockquote/internal/logger"
	"stockquote/internal/resolver"
)

func main() {
	log := logger.New()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("could not load .env")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if err := logger.Configure(log, cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAgeDays); err != nil {
		log.WithError(err).Fatal("logger")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("config")
	}

	httpClient := httpx.New(cfg.RequestTimeout())
	chain, err := resolver.Build(cfg, httpClient, log)
	if err != nil {
		log.WithError(err).Fatal("building provider chain")
	}
	for _, l := range chain.Links() {
		log.WithFields(logrus.Fields{"provider": l.Provider.Name(), "tier": l.Tier.String()}).Info("provider enabled")
	}

	s := &server{
		quotes: chain,
		insights: insights.Runner{
			Command: cfg.Insights.Command,
			Args:    cfg.Insights.Args,
			Timeout: time.Duration(cfg.Insights.TimeoutSec) * time.Second,
		},
		log:         log,
		timeout:     cfg.RequestTimeout(),
		corsOrigins: cfg.Server.CORSOrigins,
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// the delayed path may wait up to the request timeout
		WriteTimeout: cfg.RequestTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server")
		}
	}()

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
