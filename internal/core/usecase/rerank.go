package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/core/ports"
)

// applyRerank runs the optional cross-encoder stage over the fused candidates.
// Reranking is a best-effort refinement: on any failure or timeout the fused
// ordering passes through unchanged and the call still succeeds.
func applyRerank(
	ctx context.Context,
	reranker ports.Reranker,
	logger *slog.Logger,
	timeout time.Duration,
	query string,
	fused []domain.TextUnit,
	limit int,
) []domain.TextUnit {
	if reranker == nil || len(fused) == 0 {
		return trimUnits(fused, limit)
	}

	rerankCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		rerankCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reranked, err := reranker.Rerank(rerankCtx, query, fused, limit)
	if err != nil {
		logger.Warn("rerank_skipped", "error", err, "candidates", len(fused))
		return trimUnits(fused, limit)
	}
	if len(reranked) == 0 {
		logger.Warn("rerank_skipped", "error", "empty rerank result", "candidates", len(fused))
		return trimUnits(fused, limit)
	}
	return trimUnits(reranked, limit)
}
