package ports

import (
	"context"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// Retriever is the inbound contract for hybrid retrieval.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.RetrievalQuery) (*domain.RetrievalResult, error)
}

// WorkspaceLinker is the inbound contract for managing the workspace link
// graph that scope resolution walks.
type WorkspaceLinker interface {
	Link(ctx context.Context, userID string, sourceID, targetID int64) (*domain.WorkspaceLink, error)
	Unlink(ctx context.Context, userID string, sourceID, targetID int64) error
	Links(ctx context.Context, userID string, workspaceID int64) (domain.WorkspaceLinks, error)
}
