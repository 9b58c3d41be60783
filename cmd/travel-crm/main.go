package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"travelcrm/internal/config"
	"travelcrm/internal/logger"
	"travelcrm/internal/metrics"
	"travelcrm/internal/mirror"
	"travelcrm/internal/pipeline"
	"travelcrm/internal/storage"
	"travelcrm/internal/ui"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("load env: %v", err)
	}
	cfgStore, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logPath, err := env.LogPath()
	if err != nil {
		log.Fatalf("resolve log path: %v", err)
	}
	appLog, err := logger.New(logPath, env.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer appLog.Sync()

	met := metrics.New("travelcrm")

	store, err := openStore(ctx, env, appLog)
	if err != nil {
		appLog.Error("open store failed", "backend", env.Backend, "error", err)
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := store.Close(closeCtx); err != nil {
			appLog.Error("close store failed", "error", err)
		}
	}()

	var server *http.Server
	if env.MetricsAddr != "" {
		server = serveMetrics(env.MetricsAddr, met, appLog)
	}

	mir := mirror.New(appLog, met)
	ctrl := pipeline.NewController(store, mir, appLog, met, pipeline.WithAgentEmail(cfgStore.Config.AgentEmail))
	program := ui.NewProgram(ctx, ui.Deps{
		Controller: ctrl,
		Mirror:     mir,
		Config:     cfgStore,
		Log:        appLog,
	})

	go func() {
		if err := mir.Start(ctx, store, env.SubscribeDelay); err != nil && !errors.Is(err, context.Canceled) {
			program.SetupFailed(err)
		}
	}()

	appLog.Info("travel crm started", "backend", env.Backend)
	runErr := program.Run()
	cancel()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			appLog.Error("metrics server shutdown error", "error", err)
		}
		shutdownCancel()
	}
	if runErr != nil {
		appLog.Error("program terminated", "error", runErr)
		log.Println("program terminated:", runErr)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, env *config.Env, appLog logger.Logger) (storage.Store, error) {
	if env.Backend == config.BackendMongo {
		return storage.OpenMongo(ctx, storage.MongoOptions{
			URI:          env.MongoURI,
			Database:     env.MongoDB,
			Username:     env.MongoUser,
			Password:     env.MongoPassword,
			PollInterval: env.PollInterval,
		}, appLog)
	}
	return storage.OpenSQLite(ctx, env.SQLitePath, appLog)
}

func serveMetrics(addr string, met *metrics.Metrics, appLog logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", met.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		appLog.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("metrics server error", "error", err)
		}
	}()
	return server
}
