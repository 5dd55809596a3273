package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/askyt/internal/ai"
	"github.com/xxxsen/askyt/internal/config"
	"github.com/xxxsen/askyt/internal/db"
	"github.com/xxxsen/askyt/internal/embedcache"
	"github.com/xxxsen/askyt/internal/handler"
	"github.com/xxxsen/askyt/internal/job"
	"github.com/xxxsen/askyt/internal/middleware"
	"github.com/xxxsen/askyt/internal/repo"
	"github.com/xxxsen/askyt/internal/schedule"
	"github.com/xxxsen/askyt/internal/service"
	"github.com/xxxsen/askyt/internal/youtube"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "askyt",
		Short: "askyt backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run askyt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.DB)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func buildAIManager(cfg config.AIConfig) (*ai.Manager, error) {
	generators := make([]ai.GeneratorEntry, 0, len(cfg.Providers))
	streamers := make([]ai.StreamerEntry, 0, len(cfg.Providers))
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.Providers))
	for _, item := range cfg.Providers {
		provider, err := ai.NewProvider(item.Provider, item.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", item.Provider, err)
		}
		generators = append(generators, ai.GeneratorEntry{
			Name:      provider.Name(),
			Generator: ai.NewGenerator(provider, cfg.SummaryModel),
		})
		streamers = append(streamers, ai.StreamerEntry{
			Name:     provider.Name(),
			Streamer: ai.NewChatStreamer(provider, cfg.ChatModel),
		})
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     provider.Name(),
			Embedder: ai.NewEmbedder(provider, cfg.EmbedModel),
		})
	}
	embedder := embedcache.WrapLruCacheToEmbedder(
		ai.NewGroupEmbedder(embedders),
		cfg.EmbedCacheSize,
		time.Duration(cfg.EmbedCacheTTL)*time.Second,
	)
	return ai.NewManager(
		ai.NewGroupGenerator(generators),
		ai.NewGroupStreamer(streamers),
		embedder,
		ai.ManagerConfig{Timeout: cfg.Timeout, EmbedDimension: cfg.EmbedDimension},
	), nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.Int("providers", len(cfg.AI.Providers)),
	)

	videoRepo := repo.NewVideoRepo(database)
	threadRepo := repo.NewThreadRepo(database)
	messageRepo := repo.NewMessageRepo(database)
	chunkRepo := repo.NewChunkRepo(database)

	manager, err := buildAIManager(cfg.AI)
	if err != nil {
		return err
	}
	ytClient := youtube.NewClient(&http.Client{Timeout: 30 * time.Second})

	ingestService := service.NewIngestService(videoRepo, chunkRepo, ytClient, manager, cfg.Ingest)
	retriever := service.NewRetriever(chunkRepo, manager, cfg.Ingest.RetrieveTopK)
	threadService := service.NewThreadService(threadRepo, messageRepo, ingestService)
	chatService := service.NewChatService(threadRepo, messageRepo, videoRepo, retriever, manager)

	deps := handler.RouterDeps{
		Threads: handler.NewThreadHandler(threadService, chatService),
	}
	if cfg.RateLimitSeconds > 0 {
		deps.IngestLimiter = middleware.RateLimit(time.Duration(cfg.RateLimitSeconds) * time.Second)
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORS),
			// Event streams must not pass through the compressing writer,
			// tokens would sit in its buffer instead of reaching the client.
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{`.*/messages$`})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewIngestCleanupJob(ingestService, cfg.Ingest.CleanupAgeSeconds), cfg.Ingest.CleanupCron); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
