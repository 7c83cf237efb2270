package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zs0c131y/TrustVault-sub000/internal/alert"
	"github.com/zs0c131y/TrustVault-sub000/internal/config"
	"github.com/zs0c131y/TrustVault-sub000/internal/domain/model"
	"github.com/zs0c131y/TrustVault-sub000/internal/events"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/contracts"
	"github.com/zs0c131y/TrustVault-sub000/internal/ledger/rpc"
	"github.com/zs0c131y/TrustVault-sub000/internal/restore"
	"github.com/zs0c131y/TrustVault-sub000/internal/store/couch"
	"github.com/zs0c131y/TrustVault-sub000/internal/store/postgres"
	"github.com/zs0c131y/TrustVault-sub000/internal/syncer"
)

func main() {
	_ = godotenv.Load()

	logLevel := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("syncd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	couchClient, err := couch.Connect(ctx, cfg.Couch.URL, cfg.Couch.EntitiesDB, cfg.Couch.RecordsDB)
	if err != nil {
		return err
	}
	defer couchClient.Close()

	entities := couch.NewEntityRepo(couchClient, cfg.Couch.EntitiesDB, logger)
	documents := couch.NewDocumentDir(couchClient, cfg.Couch.RecordsDB)
	if err := entities.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure entity indexes: %w", err)
	}

	db, err := postgres.New(postgres.Config{
		URL:             cfg.DB.URL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	wallets := postgres.NewWalletRepo(db)

	ledger := rpc.NewClient(cfg.Ledger.RPCURL, logger,
		rpc.WithRateLimit(cfg.Ledger.RateLimitRPS, cfg.Ledger.RateLimitBurst),
		rpc.WithCallTimeout(cfg.Ledger.CallTimeout),
		rpc.WithReceiptWaitTimeout(cfg.Ledger.ReceiptWaitTimeout),
	)

	assets := contracts.NewAssetRegistry(ledger, cfg.Ledger.AssetRegistry, cfg.Ledger.SignerAddress, logger)
	docs := contracts.NewDocumentRegistry(ledger, cfg.Ledger.DocumentRegistry, cfg.Ledger.SignerAddress, logger)

	var transport events.Transport
	if cfg.Redis.URL != "" {
		rt, err := events.NewRedisTransport(cfg.Redis.URL, cfg.Redis.Stream)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		transport = rt
	} else {
		logger.Warn("REDIS_URL not set, restoration events stay in memory")
		transport = events.NewInMemoryTransport()
	}
	defer transport.Close()

	svc := syncer.NewService(entities, wallets, documents, ledger, logger)

	engineOpts := []restore.Option{restore.WithProbeWorkers(cfg.Restore.ProbeWorkers)}
	if cfg.Alert.WebhookURL != "" {
		engineOpts = append(engineOpts, restore.WithAlerter(alert.NewWebhookAlerter(cfg.Alert.WebhookURL)))
	}
	engine := restore.NewEngine(entities, wallets, assets, docs, cfg.Ledger.SignerAddress, transport, logger, engineOpts...)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runServer(gCtx, cfg.Server.Port, newHandler(svc, engine, logger), logger)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-gCtx.Done():
		}
		return nil
	})

	logger.Info("syncd started", "port", cfg.Server.Port)
	return g.Wait()
}

func runServer(ctx context.Context, port int, handler http.Handler, logger *slog.Logger) error {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type handler struct {
	svc    *syncer.Service
	engine *restore.Engine
	logger *slog.Logger
}

func newHandler(svc *syncer.Service, engine *restore.Engine, logger *slog.Logger) http.Handler {
	h := &handler{svc: svc, engine: engine, logger: logger.With("component", "http")}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /sync/property", h.syncProperty)
	mux.HandleFunc("POST /sync/document", h.syncDocument)
	mux.HandleFunc("POST /admin/restore", h.triggerRestore)
	return mux
}

type syncPropertyRequest struct {
	syncer.PropertyInput
	TxHash string `json:"txHash"`
}

func (h *handler) syncProperty(w http.ResponseWriter, r *http.Request) {
	var req syncPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	entity, err := h.svc.SyncProperty(r.Context(), req.PropertyInput, req.TxHash)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *handler) syncDocument(w http.ResponseWriter, r *http.Request) {
	var req syncer.DocumentInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	identity, err := h.svc.SyncDocument(r.Context(), req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"identity": identity})
}

func (h *handler) triggerRestore(w http.ResponseWriter, r *http.Request) {
	// Restoration keeps running even if the admin caller disconnects.
	result, err := h.engine.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrLedgerRecordNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, model.ErrLedgerCall):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
