// Command fusiond runs the distress detection daemon: it loads the
// classifier bundle, opens the alert database, and serves the ingestion
// and alert API.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/guardband-io/distress.engine/internal/alert"
	"github.com/guardband-io/distress.engine/internal/api"
	"github.com/guardband-io/distress.engine/internal/classify"
	"github.com/guardband-io/distress.engine/internal/config"
	"github.com/guardband-io/distress.engine/internal/db"
	"github.com/guardband-io/distress.engine/internal/engine"
	"github.com/guardband-io/distress.engine/internal/monitoring"
	"github.com/guardband-io/distress.engine/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to engine config JSON (defaults built in)")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	dbPath     = flag.String("db", "", "Database path (overrides config)")
	bundlePath = flag.String("bundle", "", "Classifier bundle path (overrides config)")
	logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	devMode    = flag.Bool("dev", false, "Console log output")
)

func main() {
	flag.Parse()

	// Optional .env for deployments that configure through the environment.
	_ = godotenv.Load()

	cfg := config.EmptyEngineConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadEngineConfig(*configPath)
		if err != nil {
			panic(err)
		}
	}

	addr := cfg.GetListen()
	if *listen != "" {
		addr = *listen
	}
	if env := os.Getenv("FUSIOND_LISTEN"); *listen == "" && env != "" {
		addr = env
	}
	databasePath := cfg.GetDBPath()
	if *dbPath != "" {
		databasePath = *dbPath
	}
	modelPath := cfg.GetBundlePath()
	if *bundlePath != "" {
		modelPath = *bundlePath
	}

	log, err := monitoring.NewLogger(monitoring.LoggerConfig{
		Level:   *logLevel,
		Path:    cfg.GetLogPath(),
		Console: *devMode,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting fusiond",
		zap.String("version", version.Version),
		zap.String("git_sha", version.GitSHA),
		zap.String("listen", addr),
		zap.String("db", databasePath))

	database, err := db.New(databasePath)
	if err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}
	defer database.Close()

	handle := classify.NewHandle(nil)
	store := alert.NewSQLStore(database)
	alerts := alert.NewManager(store, cfg.GetSeverityThreshold(), log)
	eng, err := engine.New(cfg, handle, store, alerts, log)
	if err != nil {
		log.Fatal("engine init failed", zap.Error(err))
	}
	defer eng.Close()

	// A missing or incompatible bundle is not fatal: the audio modality
	// degrades to unavailable and a bundle can be loaded later via the
	// reload API.
	if b, err := classify.LoadBundle(modelPath); err != nil {
		log.Warn("classifier bundle not loaded, audio modality disabled",
			zap.String("path", modelPath), zap.Error(err))
	} else if err := b.CompatibleWith(eng.FeatureLength()); err != nil {
		log.Warn("classifier bundle rejected, audio modality disabled",
			zap.String("path", modelPath), zap.Error(err))
	} else {
		handle.Swap(b)
		log.Info("classifier bundle loaded",
			zap.String("path", modelPath),
			zap.String("model_version", b.ModelVersion),
			zap.Int("feature_length", b.FeatureLength))
	}

	router := api.NewRouter(eng, store, alerts, handle, modelPath, log)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()
	log.Info("listening", zap.String("addr", addr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
