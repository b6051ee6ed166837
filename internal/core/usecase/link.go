package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/core/ports"
)

// WorkspaceLinkUseCase manages the link graph between workspaces. Edges are
// stored directionally, once per ordered pair, and never self-referencing.
type WorkspaceLinkUseCase struct {
	workspaces ports.WorkspaceStore
}

func NewWorkspaceLinkUseCase(workspaces ports.WorkspaceStore) *WorkspaceLinkUseCase {
	return &WorkspaceLinkUseCase{workspaces: workspaces}
}

func (uc *WorkspaceLinkUseCase) Link(ctx context.Context, userID string, sourceID, targetID int64) (*domain.WorkspaceLink, error) {
	if sourceID == targetID {
		return nil, domain.WrapError(domain.ErrSelfLink, "link workspaces", fmt.Errorf("workspace %d", sourceID))
	}
	return uc.workspaces.CreateLink(ctx, userID, sourceID, targetID)
}

func (uc *WorkspaceLinkUseCase) Unlink(ctx context.Context, userID string, sourceID, targetID int64) error {
	return uc.workspaces.DeleteLink(ctx, userID, sourceID, targetID)
}

func (uc *WorkspaceLinkUseCase) Links(ctx context.Context, userID string, workspaceID int64) (domain.WorkspaceLinks, error) {
	if _, err := uc.workspaces.GetOwned(ctx, userID, workspaceID); err != nil {
		return domain.WorkspaceLinks{}, err
	}
	return uc.workspaces.ListLinks(ctx, workspaceID)
}
