package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/core/ports"
)

const (
	methodVector  = "vector"
	methodLexical = "lexical"
)

type RetrieveOptions struct {
	DefaultTopK    int
	Overfetch      int
	RRFK           int
	VectorTimeout  time.Duration
	LexicalTimeout time.Duration
	RerankTimeout  time.Duration
	RerankEnabled  bool
	CacheSize      int
	CacheTTL       time.Duration
}

func DefaultRetrieveOptions() RetrieveOptions {
	return RetrieveOptions{
		DefaultTopK:    10,
		Overfetch:      2,
		RRFK:           60,
		VectorTimeout:  2 * time.Second,
		LexicalTimeout: 2 * time.Second,
		RerankTimeout:  5 * time.Second,
		RerankEnabled:  true,
		CacheSize:      1024,
		CacheTTL:       30 * time.Second,
	}
}

func (o RetrieveOptions) normalize() RetrieveOptions {
	out := o
	def := DefaultRetrieveOptions()

	if out.DefaultTopK <= 0 {
		out.DefaultTopK = def.DefaultTopK
	}
	if out.Overfetch <= 0 {
		out.Overfetch = def.Overfetch
	}
	if out.RRFK <= 0 {
		out.RRFK = def.RRFK
	}
	if out.VectorTimeout <= 0 {
		out.VectorTimeout = def.VectorTimeout
	}
	if out.LexicalTimeout <= 0 {
		out.LexicalTimeout = def.LexicalTimeout
	}
	if out.RerankTimeout <= 0 {
		out.RerankTimeout = def.RerankTimeout
	}
	if out.CacheSize <= 0 {
		out.CacheSize = def.CacheSize
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = def.CacheTTL
	}
	return out
}

// RetrieveObserver receives callbacks about finished retrieval calls so the
// observability layer can record them without the core importing it.
type RetrieveObserver interface {
	RetrieveFinished(mode domain.SearchMode, degraded bool, resultCount int, duration time.Duration, err error)
	SearchStageFinished(method string, duration time.Duration, err error)
	CacheHit()
}

type noopObserver struct{}

func (noopObserver) RetrieveFinished(domain.SearchMode, bool, int, time.Duration, error) {}
func (noopObserver) SearchStageFinished(string, time.Duration, error)                    {}
func (noopObserver) CacheHit()                                                           {}

// HybridRetrieveUseCase orchestrates one retrieval call: scope resolution,
// concurrent dense + lexical search, RRF fusion, optional reranking, and
// final truncation. Calls are fully independent; the only shared state is
// the read-only durable index behind the outbound ports and the query cache.
type HybridRetrieveUseCase struct {
	scope    *ScopeResolver
	embedder ports.Embedder
	vector   ports.VectorIndex
	lexical  ports.LexicalIndex
	reranker ports.Reranker
	cache    *resultCache
	observer RetrieveObserver
	logger   *slog.Logger
	opts     RetrieveOptions
}

func NewHybridRetrieveUseCase(
	scope *ScopeResolver,
	embedder ports.Embedder,
	vector ports.VectorIndex,
	lexical ports.LexicalIndex,
	reranker ports.Reranker,
	logger *slog.Logger,
	observer RetrieveObserver,
	opts RetrieveOptions,
) (*HybridRetrieveUseCase, error) {
	opts = opts.normalize()
	cache, err := newResultCache(opts.CacheSize, opts.CacheTTL)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &HybridRetrieveUseCase{
		scope:    scope,
		embedder: embedder,
		vector:   vector,
		lexical:  lexical,
		reranker: reranker,
		cache:    cache,
		observer: observer,
		logger:   logger,
		opts:     opts,
	}, nil
}

// InvalidateWorkspace drops cached results whose scope includes the given
// workspace. Wired to index-update events from the storage collaborator.
func (uc *HybridRetrieveUseCase) InvalidateWorkspace(workspaceID int64) {
	uc.cache.invalidateWorkspace(workspaceID)
}

func (uc *HybridRetrieveUseCase) Retrieve(ctx context.Context, query domain.RetrievalQuery) (*domain.RetrievalResult, error) {
	start := time.Now()

	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.TopK == 0 {
		query.TopK = uc.opts.DefaultTopK
	}
	if query.Mode == "" {
		query.Mode = domain.ModeHybrid
	}
	if query.Granularity == "" {
		query.Granularity = domain.GranularityChunk
	}

	scope, err := uc.scope.Resolve(ctx, query.UserID, query.WorkspaceID, query.CrossWorkspaces)
	if err != nil {
		uc.observer.RetrieveFinished(query.Mode, false, 0, time.Since(start), err)
		return nil, err
	}

	key := cacheKey(query, scope)
	if cached, ok := uc.cache.get(key); ok {
		uc.observer.CacheHit()
		uc.observer.RetrieveFinished(query.Mode, false, len(cached.Units), time.Since(start), nil)
		return cached, nil
	}

	result, err := uc.search(ctx, query, scope)
	if err != nil {
		uc.observer.RetrieveFinished(query.Mode, false, 0, time.Since(start), err)
		return nil, err
	}

	uc.cache.put(key, scope, *result)
	uc.observer.RetrieveFinished(query.Mode, result.Degraded, len(result.Units), time.Since(start), nil)
	return result, nil
}

func (uc *HybridRetrieveUseCase) search(ctx context.Context, query domain.RetrievalQuery, scope []int64) (*domain.RetrievalResult, error) {
	fetchLimit := query.TopK * uc.opts.Overfetch

	switch query.Mode {
	case domain.ModeVector:
		units, err := uc.runVectorSearch(ctx, query, scope, fetchLimit)
		if err != nil {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, "vector search", err)
		}
		return uc.finish(ctx, query, units, false, ""), nil

	case domain.ModeLexical:
		units, err := uc.runLexicalSearch(ctx, query, scope, fetchLimit)
		if err != nil {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", err)
		}
		return uc.finish(ctx, query, units, false, ""), nil

	default:
		return uc.hybridSearch(ctx, query, scope, fetchLimit)
	}
}

type searchOutcome struct {
	method string
	units  []domain.TextUnit
	err    error
}

// hybridSearch fans out the two methods concurrently and joins before fusion.
// Timeouts and cancellation attach to each method individually so one slow or
// failing method degrades the call instead of failing it.
func (uc *HybridRetrieveUseCase) hybridSearch(ctx context.Context, query domain.RetrievalQuery, scope []int64, fetchLimit int) (*domain.RetrievalResult, error) {
	vectorChan := make(chan searchOutcome, 1)
	lexicalChan := make(chan searchOutcome, 1)

	go func() {
		units, err := uc.runVectorSearch(ctx, query, scope, fetchLimit)
		select {
		case vectorChan <- searchOutcome{method: methodVector, units: units, err: err}:
		case <-ctx.Done():
		}
	}()
	go func() {
		units, err := uc.runLexicalSearch(ctx, query, scope, fetchLimit)
		select {
		case lexicalChan <- searchOutcome{method: methodLexical, units: units, err: err}:
		case <-ctx.Done():
		}
	}()

	var vectorRes, lexicalRes searchOutcome
	var vectorDone, lexicalDone bool
	for !vectorDone || !lexicalDone {
		select {
		case vectorRes = <-vectorChan:
			vectorDone = true
		case lexicalRes = <-lexicalChan:
			lexicalDone = true
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Caller cancellation discards any partial results.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if vectorRes.err != nil && lexicalRes.err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "hybrid search", errors.Join(
			fmt.Errorf("vector: %w", vectorRes.err),
			fmt.Errorf("lexical: %w", lexicalRes.err),
		))
	}

	degraded := false
	degradedMethod := ""
	for _, res := range []searchOutcome{vectorRes, lexicalRes} {
		if res.err != nil {
			degraded = true
			degradedMethod = res.method
			uc.logger.Warn("search_method_degraded", "method", res.method, "error", res.err)
		}
	}

	fused := fuseRRF(vectorRes.units, lexicalRes.units, uc.opts.RRFK)
	return uc.finish(ctx, query, candidateUnits(fused), degraded, degradedMethod), nil
}

func (uc *HybridRetrieveUseCase) finish(ctx context.Context, query domain.RetrievalQuery, units []domain.TextUnit, degraded bool, degradedMethod string) *domain.RetrievalResult {
	if query.Rerank && uc.opts.RerankEnabled {
		units = applyRerank(ctx, uc.reranker, uc.logger, uc.opts.RerankTimeout, query.Query, units, query.TopK)
	} else {
		units = trimUnits(units, query.TopK)
	}
	return &domain.RetrievalResult{
		Units:          units,
		Degraded:       degraded,
		DegradedMethod: degradedMethod,
	}
}

func (uc *HybridRetrieveUseCase) runVectorSearch(ctx context.Context, query domain.RetrievalQuery, scope []int64, limit int) ([]domain.TextUnit, error) {
	start := time.Now()
	searchCtx, cancel := context.WithTimeout(ctx, uc.opts.VectorTimeout)
	defer cancel()

	queryVector, err := uc.embedder.EmbedQuery(searchCtx, query.Query)
	if err != nil {
		uc.observer.SearchStageFinished(methodVector, time.Since(start), err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	units, err := uc.vector.Search(searchCtx, queryVector, scope, query.Granularity, query.SourceTypes, limit)
	uc.observer.SearchStageFinished(methodVector, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("vector index search: %w", err)
	}
	return units, nil
}

func (uc *HybridRetrieveUseCase) runLexicalSearch(ctx context.Context, query domain.RetrievalQuery, scope []int64, limit int) ([]domain.TextUnit, error) {
	start := time.Now()
	searchCtx, cancel := context.WithTimeout(ctx, uc.opts.LexicalTimeout)
	defer cancel()

	units, err := uc.lexical.Search(searchCtx, query.Query, scope, query.Granularity, query.SourceTypes, limit)
	uc.observer.SearchStageFinished(methodLexical, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("lexical index search: %w", err)
	}
	return units, nil
}
