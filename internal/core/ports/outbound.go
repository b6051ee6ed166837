package ports

import (
	"context"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// Embedder turns query text into a dense vector. Embedding generation itself
// happens in an external provider; this core only consumes the vector.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex reads the dense index, returning units ordered by descending
// similarity. An empty result is not an error.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, scope []int64, granularity domain.Granularity, sourceTypes []domain.SourceType, limit int) ([]domain.TextUnit, error)
}

// LexicalIndex reads the full-text index, returning units ordered by
// descending lexical relevance. Units with zero lexical overlap are excluded.
type LexicalIndex interface {
	Search(ctx context.Context, queryText string, scope []int64, granularity domain.Granularity, sourceTypes []domain.SourceType, limit int) ([]domain.TextUnit, error)
}

// WorkspaceStore reads workspaces and manages the link graph.
type WorkspaceStore interface {
	GetOwned(ctx context.Context, userID string, workspaceID int64) (*domain.Workspace, error)
	ListLinks(ctx context.Context, workspaceID int64) (domain.WorkspaceLinks, error)
	CreateLink(ctx context.Context, userID string, sourceID, targetID int64) (*domain.WorkspaceLink, error)
	DeleteLink(ctx context.Context, userID string, sourceID, targetID int64) error
}

// Reranker re-scores a small candidate set against the query with a
// cross-encoder model. It is best-effort: callers must tolerate failure.
type Reranker interface {
	Rerank(ctx context.Context, query string, units []domain.TextUnit, limit int) ([]domain.TextUnit, error)
}

// IndexEvents delivers notifications about index mutations performed by the
// external indexing collaborator.
type IndexEvents interface {
	SubscribeIndexUpdated(ctx context.Context, handler func(ctx context.Context, workspaceID int64) error) error
	Close()
}
