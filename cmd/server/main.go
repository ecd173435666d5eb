package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/seedledger/internal/config"
	"github.com/mamadbah2/seedledger/internal/repository"
	memorystore "github.com/mamadbah2/seedledger/internal/repository/memory"
	"github.com/mamadbah2/seedledger/internal/repository/mongodb"
	"github.com/mamadbah2/seedledger/internal/repository/sheets"
	"github.com/mamadbah2/seedledger/internal/scheduler"
	"github.com/mamadbah2/seedledger/internal/server/handlers"
	"github.com/mamadbah2/seedledger/internal/server/router"
	auditsvc "github.com/mamadbah2/seedledger/internal/service/audit"
	dispatchsvc "github.com/mamadbah2/seedledger/internal/service/dispatch"
	loadingsvc "github.com/mamadbah2/seedledger/internal/service/loading"
	manifestsvc "github.com/mamadbah2/seedledger/internal/service/manifest"
	registrysvc "github.com/mamadbah2/seedledger/internal/service/registry"
	whatsappclient "github.com/mamadbah2/seedledger/pkg/clients/whatsapp"
	"github.com/mamadbah2/seedledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	var store repository.LedgerStore
	switch cfg.Ledger.Driver {
	case "memory":
		baseLogger.Warn("using in-memory ledger store, data will not survive restarts")
		store = memorystore.New()
	default:
		mongoStore, err := mongodb.New(context.Background(), cfg.Ledger.URI, cfg.Ledger.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb ledger store", zap.Error(err))
		}
		defer func() {
			if err := mongoStore.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		store = mongoStore
	}

	var messenger whatsappclient.Client
	if cfg.WhatsApp.AccessToken != "" {
		messenger = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp dispatch alerts enabled")
	} else {
		baseLogger.Warn("whatsapp token missing, dispatch alerts disabled")
	}

	var register sheets.Repository
	if cfg.Sheets.SpreadsheetID != "" {
		register, err = sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init dispatch register", zap.Error(err))
		}
		baseLogger.Info("dispatch register enabled")
	} else {
		baseLogger.Warn("register spreadsheet missing, dispatch register disabled")
	}

	notifier := dispatchsvc.NewNotifier(messenger, cfg.WhatsApp.OpsGroupID, register, cfg.Sheets.RegisterRange, baseLogger.Named("svc.dispatch"))
	loadingSvc := loadingsvc.NewService(store, cfg.Loading, notifier, baseLogger.Named("svc.loading"))
	manifestQuery := manifestsvc.NewQuery(store, baseLogger.Named("svc.manifest"))
	registrySvc := registrysvc.NewService(store, cfg.Loading, baseLogger.Named("svc.registry"))
	auditSvc := auditsvc.NewService(store, baseLogger.Named("svc.audit"))

	loadingHandler := handlers.NewLoadingHandler(loadingSvc, manifestQuery, baseLogger.Named("handlers.loading"))
	registryHandler := handlers.NewRegistryHandler(registrySvc, auditSvc, store, baseLogger.Named("handlers.registry"))
	engine := router.New(loadingHandler, registryHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Audit, auditSvc, messenger, cfg.WhatsApp.OpsGroupID, baseLogger.Named("scheduler"))
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
