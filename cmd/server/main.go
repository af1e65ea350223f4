package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/kdialloh/waresponder/internal/cache"
	"github.com/kdialloh/waresponder/internal/config"
	"github.com/kdialloh/waresponder/internal/repository/mongodb"
	"github.com/kdialloh/waresponder/internal/repository/sheets"
	"github.com/kdialloh/waresponder/internal/scheduler"
	"github.com/kdialloh/waresponder/internal/server/handlers"
	"github.com/kdialloh/waresponder/internal/server/router"
	"github.com/kdialloh/waresponder/internal/service/autoreply"
	digestsvc "github.com/kdialloh/waresponder/internal/service/digest"
	ingestsvc "github.com/kdialloh/waresponder/internal/service/ingest"
	"github.com/kdialloh/waresponder/internal/service/outbound"
	whatsappclient "github.com/kdialloh/waresponder/pkg/clients/whatsapp"
	"github.com/kdialloh/waresponder/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.New(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	// The sheet export is optional; a deployment without Google credentials
	// still ingests and replies.
	var sheetRepo sheets.Repository
	if cfg.Sheets.CredentialsPath != "" && cfg.Sheets.SpreadsheetID != "" {
		sheetRepo, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
	} else {
		baseLogger.Warn("digest sheet export disabled, google sheets not configured")
	}

	whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
	sender := outbound.NewSender(cfg.WhatsApp, whatsClient, baseLogger.Named("svc.outbound"))

	configCache := cache.New(mongoRepo, cfg.AutoReply.CacheTTL, baseLogger.Named("cache.config"))
	decider := autoreply.NewDecider(cfg.AutoReply, cfg.WhatsApp.PhoneNumberID)
	reporter := ingestsvc.NewZapReporter(baseLogger.Named("svc.ingest"))
	ingestService := ingestsvc.NewService(cfg.WhatsApp.VerifyToken, mongoRepo, configCache, decider, sender, reporter, baseLogger.Named("svc.ingest"))

	webhookHandler := handlers.NewWebhookHandler(ingestService, sender, baseLogger.Named("handlers.webhook"))
	adminHandler := handlers.NewAdminHandler(mongoRepo, configCache, baseLogger.Named("handlers.admin"))
	engine := router.New(webhookHandler, adminHandler, cfg.Admin.Token, baseLogger.Named("router"))

	digestService := digestsvc.NewService(mongoRepo, sheetRepo, sender, cfg.Digest.Recipient, baseLogger.Named("svc.digest"))
	sched := scheduler.NewScheduler(cfg.Digest, digestService, baseLogger.Named("scheduler"))
	sched.Start()
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
