package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/workspace-search/internal/config"
	"github.com/kirillkom/workspace-search/internal/core/ports"
	"github.com/kirillkom/workspace-search/internal/core/usecase"
	"github.com/kirillkom/workspace-search/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/workspace-search/internal/infrastructure/queue/nats"
	"github.com/kirillkom/workspace-search/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/workspace-search/internal/infrastructure/reranker/tei"
	"github.com/kirillkom/workspace-search/internal/infrastructure/resilience"
	"github.com/kirillkom/workspace-search/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/workspace-search/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.SearchMetrics

	RetrieveUC *usecase.HybridRetrieveUseCase
	LinkUC     ports.WorkspaceLinker
	Events     ports.IndexEvents

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, serviceName string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	workspaceRepo := postgres.NewWorkspaceRepository(db)
	if err := workspaceRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure workspace schema: %w", err)
	}
	textUnitRepo := postgres.NewTextUnitRepository(db)
	if err := textUnitRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure text unit schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig(), logger)
	embedder := ollama.NewEmbedder(ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, executor))
	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	var reranker ports.Reranker
	if cfg.RerankerEnabled {
		reranker = tei.New(cfg.RerankerURL, executor)
	}

	events, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSIndexSubject, nats.Options{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("init index events: %w", err)
	}

	searchMetrics := metrics.NewSearchMetrics(serviceName)
	scope := usecase.NewScopeResolver(workspaceRepo)

	retrieveUC, err := usecase.NewHybridRetrieveUseCase(
		scope,
		embedder,
		vectorIndex,
		textUnitRepo,
		reranker,
		logger,
		searchMetrics.Observer(serviceName),
		usecase.RetrieveOptions{
			DefaultTopK:    cfg.SearchTopK,
			Overfetch:      cfg.SearchOverfetch,
			RRFK:           cfg.SearchRRFK,
			VectorTimeout:  cfg.VectorTimeout,
			LexicalTimeout: cfg.LexicalTimeout,
			RerankTimeout:  cfg.RerankTimeout,
			RerankEnabled:  cfg.RerankerEnabled,
			CacheSize:      cfg.CacheSize,
			CacheTTL:       cfg.CacheTTL,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init retrieve use case: %w", err)
	}

	linkUC := usecase.NewWorkspaceLinkUseCase(workspaceRepo)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    searchMetrics,
		RetrieveUC: retrieveUC,
		LinkUC:     linkUC,
		Events:     events,
		closeFn: func() {
			events.Close()
			_ = db.Close()
		},
	}, nil
}

// StartInvalidation subscribes to index-update events and drops cached
// results for the touched workspace. Blocks until ctx is cancelled.
func (a *App) StartInvalidation(ctx context.Context) error {
	return a.Events.SubscribeIndexUpdated(ctx, func(_ context.Context, workspaceID int64) error {
		a.RetrieveUC.InvalidateWorkspace(workspaceID)
		a.Logger.Debug("cache_invalidated", "workspace_id", workspaceID)
		return nil
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
