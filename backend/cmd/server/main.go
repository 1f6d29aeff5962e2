package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"famgraph/backend/internal/api"
	"famgraph/backend/internal/export"
	"famgraph/backend/internal/graph"
	"famgraph/backend/internal/model"
	"famgraph/backend/internal/seed"
	"famgraph/backend/pkg/config"
	"famgraph/backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Env, cfg.LogLevel); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting family graph server...")

	mapper, err := buildMapper(cfg, log)
	if err != nil {
		log.Fatal("Failed to seed graph", zap.Error(err))
	}

	if cfg.ExportOnStart {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		if err := exportGraph(ctx, cfg, mapper.Store()); err != nil {
			// The API does not depend on Neo4j, so keep serving.
			log.Error("Neo4j export failed", zap.Error(err))
		}
		cancel()
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(mapper, log)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// buildMapper creates the store and loads the seed fixture when enabled
func buildMapper(cfg *config.Config, log *zap.Logger) (*model.Mapper, error) {
	store := graph.NewStoreWithLogger(log.Named("graph"))
	mapper := model.NewMapperWithLogger(store, log.Named("model"))

	if !cfg.SeedOnStart {
		return mapper, nil
	}

	fixture, err := seed.ReadFile(cfg.SeedFile)
	if err != nil {
		return nil, err
	}
	summary, err := seed.Load(mapper, fixture, log.Named("seed"))
	if err != nil {
		return nil, err
	}
	log.Info("Graph seeded",
		zap.String("file", cfg.SeedFile),
		zap.Int("people", summary.People),
		zap.Int("parent_child", summary.ParentChild),
		zap.Int("marriages", summary.Marriages),
	)
	return mapper, nil
}

func exportGraph(ctx context.Context, cfg *config.Config, store *graph.Store) error {
	driver, err := export.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	_, err = export.NewExporter(driver, cfg).Export(ctx, store)
	return err
}
