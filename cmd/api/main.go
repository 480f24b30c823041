package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"devlink/internal/campaign"
	"devlink/internal/channel"
	"devlink/internal/config"
	"devlink/internal/content"
	"devlink/internal/credentials"
	"devlink/internal/httpserver"
	"devlink/internal/logging"
	"devlink/internal/observability"
	"devlink/internal/service"
	"devlink/internal/store/pg"
)

func main() {
	cfg := config.LoadAPI()
	logging.Init("api", cfg.LogFormat)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := pg.NewPool(ctx, cfg.DBDSN, pg.PoolOptions{
		MaxConns:        8,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	})
	if err != nil {
		slog.Error("api db connect failed", "err", err)
		os.Exit(1)
	}

	observability.Register(prometheus.DefaultRegisterer)

	store := pg.New(db)
	vault := credentials.NewVault(store, cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRedirectURI)

	var model content.TextModel
	if cfg.LLMAPIKey != "" {
		model = &content.LLMClient{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			HTTP:    &http.Client{Timeout: 30 * time.Second},
		}
	}
	generator := content.NewService(model)

	ch := buildChannel(cfg, vault)

	limiter := rate.NewLimiter(rate.Limit(cfg.SendRPS), cfg.SendBurst)
	runner := campaign.NewRunner(store, generator, ch, limiter, cfg.Transport, cfg.MaxActiveCampaigns)

	s := httpserver.New()
	api := &httpserver.API{
		Campaigns:  service.NewCampaignService(store, runner),
		Emails:     service.NewEmailService(store, ch),
		Businesses: service.NewBusinessService(store),
		Vault:      vault,
	}
	api.Register(s.Mux)

	s.Mux.HandleFunc("/healthz", httpserver.Healthz())
	s.Mux.HandleFunc("/readyz", httpserver.Readyz(2*time.Second, func(ctx context.Context) error {
		return db.Ping(ctx)
	}))

	handler := httpserver.Logging(httpserver.Metrics(observability.APIRequests)(s.Mux))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api metrics server failed", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("api shutdown", "signal", sig.String())
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("api listening", "port", cfg.Port, "transport", cfg.Transport)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("api server failed", "err", err)
		os.Exit(1)
	}

	// Let in-flight campaign loops write their final ledger rows.
	runner.Wait()
	db.Close()
}

func buildChannel(cfg config.APIConfig, vault *credentials.Vault) channel.Channel {
	switch cfg.Transport {
	case "oauth2_smtp":
		return &channel.OAuthSMTP{
			Host:   cfg.SMTPHost,
			Port:   cfg.SMTPPort,
			Tokens: vault,
			From:   cfg.SMTPUser,
		}
	case "vendor_api":
		return &channel.GmailAPI{Tokens: vault}
	default:
		return &channel.BasicSMTP{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPUser,
		}
	}
}
