package usecase

import (
	"context"
	"sort"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/core/ports"
)

// ScopeResolver computes the set of workspace ids one query may search: the
// primary workspace plus, when cross-workspace search is requested, its
// one-hop linked workspaces in both directions. Links of linked workspaces
// are deliberately not followed.
type ScopeResolver struct {
	workspaces ports.WorkspaceStore
}

func NewScopeResolver(workspaces ports.WorkspaceStore) *ScopeResolver {
	return &ScopeResolver{workspaces: workspaces}
}

func (r *ScopeResolver) Resolve(ctx context.Context, userID string, workspaceID int64, crossWorkspaces bool) ([]int64, error) {
	if _, err := r.workspaces.GetOwned(ctx, userID, workspaceID); err != nil {
		return nil, err
	}
	if !crossWorkspaces {
		return []int64{workspaceID}, nil
	}

	links, err := r.workspaces.ListLinks(ctx, workspaceID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "list workspace links", err)
	}

	seen := map[int64]struct{}{workspaceID: {}}
	for _, link := range links.Outgoing {
		seen[link.TargetID] = struct{}{}
	}
	for _, link := range links.Incoming {
		seen[link.SourceID] = struct{}{}
	}

	scope := make([]int64, 0, len(seen))
	for id := range seen {
		scope = append(scope, id)
	}
	sort.Slice(scope, func(i, j int) bool { return scope[i] < scope[j] })
	return scope, nil
}
