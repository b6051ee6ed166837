package domain

import "time"

// Workspace is an isolated container of TextUnits owned by exactly one user.
type Workspace struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceLink is a directed edge between two workspaces, stored once per
// ordered pair. Scope resolution treats links as granting mutual visibility,
// but the direction is kept for provenance.
type WorkspaceLink struct {
	SourceID  int64     `json:"source_workspace_id"`
	TargetID  int64     `json:"target_workspace_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkspaceLinks groups the edges touching one workspace.
type WorkspaceLinks struct {
	Outgoing []WorkspaceLink `json:"outgoing"`
	Incoming []WorkspaceLink `json:"incoming"`
}
