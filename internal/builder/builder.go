package builder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/futig/workspace-agent/internal/api"
	agentapi "github.com/futig/workspace-agent/internal/api/agent"
	offerapi "github.com/futig/workspace-agent/internal/api/offer"
	uploadapi "github.com/futig/workspace-agent/internal/api/upload"
	"github.com/futig/workspace-agent/internal/config"
	"github.com/futig/workspace-agent/internal/pkg/formatter"
	pkglogger "github.com/futig/workspace-agent/internal/pkg/logger"
	"github.com/futig/workspace-agent/internal/pkg/validator"
	"github.com/futig/workspace-agent/internal/repository"
	"github.com/futig/workspace-agent/internal/telegram"
	"github.com/futig/workspace-agent/internal/usecase/agent"
	"github.com/futig/workspace-agent/internal/usecase/analysis"
	"github.com/futig/workspace-agent/internal/usecase/answer"
	"github.com/futig/workspace-agent/internal/usecase/document"
	"github.com/futig/workspace-agent/internal/usecase/extractor"
	"github.com/futig/workspace-agent/internal/usecase/offer"
	"github.com/futig/workspace-agent/internal/usecase/retrieval"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := pkglogger.New(cfg.LogLevel, cfg.LogFile, cfg.Environment)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	app := &App{logger: logger}

	// Chunk storage. Without a database the agent still runs, but uploads
	// are lost on restart.
	var chunks repository.ChunkRepository
	if cfg.DatabaseURL != "" {
		logger.Info("Running database migrations")
		if err := repository.RunMigrations(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		app.db, err = setupDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("setup database: %w", err)
		}
		chunks = repository.NewChunkPostgres(app.db)
	} else {
		logger.Warn("DATABASE_URL is not set, chunks are kept in memory")
		chunks = repository.NewChunkMemory()
	}

	// File mappings are shared across replicas through Redis when available.
	var mappings repository.FileMappingStore = repository.NewFileMappingCache()
	if cfg.RedisCfg.Addr != "" {
		app.redis, err = setupRedis(ctx, cfg.RedisCfg, logger)
		if err != nil {
			logger.Warn("Redis unavailable, file mappings are kept in process", zap.Error(err))
		} else {
			mappings = repository.NewFileMappingRedis(app.redis)
		}
	}

	gateway, err := setupGateway(cfg, logger)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("setup generation gateway: %w", err)
	}
	emailSender := setupMailer(cfg, logger)

	requestValidator := validator.New(cfg.UploadCfg)

	// Use cases
	index := retrieval.NewIndex(chunks, gateway)
	app.documents = document.NewUsecase(index, gateway, mappings, cfg.UploadCfg)
	answers := answer.NewService(gateway)

	graph, err := agent.NewGraph(
		index,
		extractor.NewNameEmailExtractor(gateway),
		offer.NewGenerator(gateway),
		answers,
		analysis.NewLocator(mappings, cfg.UploadCfg),
		analysis.NewAnalyzer(),
	)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("build agent graph: %w", err)
	}
	logger.Info("Use cases initialized")

	handlers := api.Handlers{
		Agent:  agentapi.NewHandler(graph, answers, agentapi.NewBroker(cfg.StreamCfg.BufferSize), requestValidator, cfg.StreamCfg),
		Upload: uploadapi.NewHandler(app.documents, cfg.UploadCfg, requestValidator),
		Offer:  offerapi.NewHandler(emailSender, formatter.NewFactory(), requestValidator),
	}

	router := api.SetupRouter(handlers, cfg.RequestTimeout, logger)

	if cfg.TelegramCfg.Enabled() {
		app.bot, err = telegram.New(cfg.TelegramCfg, cfg.UploadCfg, graph, app.documents, logger.Named("telegram"))
		if err != nil {
			app.close()
			return nil, fmt.Errorf("setup telegram bot: %w", err)
		}
	}

	// The SSE handler clears its own write deadline; WriteTimeout bounds the
	// remaining endpoints.
	app.server = &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Application built successfully", zap.String("environment", cfg.Environment))

	return app, nil
}
