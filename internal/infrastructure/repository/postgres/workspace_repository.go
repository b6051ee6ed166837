package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

type WorkspaceRepository struct {
	db *sql.DB
}

func NewWorkspaceRepository(db *sql.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *WorkspaceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS workspaces (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_workspaces_user_id ON workspaces(user_id);

CREATE TABLE IF NOT EXISTS workspace_links (
	id BIGSERIAL PRIMARY KEY,
	source_workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	target_workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT uq_workspace_links_pair UNIQUE (source_workspace_id, target_workspace_id),
	CONSTRAINT chk_workspace_links_no_self CHECK (source_workspace_id <> target_workspace_id)
);

CREATE INDEX IF NOT EXISTS idx_workspace_links_source ON workspace_links(source_workspace_id);
CREATE INDEX IF NOT EXISTS idx_workspace_links_target ON workspace_links(target_workspace_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// GetOwned returns the workspace only when it exists and belongs to the user.
// Both cases surface as ErrWorkspaceNotFound so callers cannot probe for
// foreign workspace ids.
func (r *WorkspaceRepository) GetOwned(ctx context.Context, userID string, workspaceID int64) (*domain.Workspace, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, name, created_at
FROM workspaces
WHERE id = $1 AND user_id = $2
`, workspaceID, userID)

	var ws domain.Workspace
	if err := row.Scan(&ws.ID, &ws.UserID, &ws.Name, &ws.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrWorkspaceNotFound, "get workspace", fmt.Errorf("workspace %d", workspaceID))
		}
		return nil, fmt.Errorf("scan workspace: %w", err)
	}
	return &ws, nil
}

func (r *WorkspaceRepository) ListLinks(ctx context.Context, workspaceID int64) (domain.WorkspaceLinks, error) {
	outgoing, err := r.queryLinks(ctx, `
SELECT source_workspace_id, target_workspace_id, created_at
FROM workspace_links
WHERE source_workspace_id = $1
ORDER BY target_workspace_id
`, workspaceID)
	if err != nil {
		return domain.WorkspaceLinks{}, fmt.Errorf("list outgoing links: %w", err)
	}

	incoming, err := r.queryLinks(ctx, `
SELECT source_workspace_id, target_workspace_id, created_at
FROM workspace_links
WHERE target_workspace_id = $1
ORDER BY source_workspace_id
`, workspaceID)
	if err != nil {
		return domain.WorkspaceLinks{}, fmt.Errorf("list incoming links: %w", err)
	}

	return domain.WorkspaceLinks{Outgoing: outgoing, Incoming: incoming}, nil
}

func (r *WorkspaceRepository) queryLinks(ctx context.Context, query string, workspaceID int64) ([]domain.WorkspaceLink, error) {
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.WorkspaceLink
	for rows.Next() {
		var link domain.WorkspaceLink
		if err := rows.Scan(&link.SourceID, &link.TargetID, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// CreateLink inserts one directed edge. Both endpoints must be owned by the
// user; the unique pair constraint and the self-link check are enforced by
// the schema and mapped onto domain errors.
func (r *WorkspaceRepository) CreateLink(ctx context.Context, userID string, sourceID, targetID int64) (*domain.WorkspaceLink, error) {
	if _, err := r.GetOwned(ctx, userID, sourceID); err != nil {
		return nil, err
	}
	if _, err := r.GetOwned(ctx, userID, targetID); err != nil {
		return nil, err
	}

	link := domain.WorkspaceLink{SourceID: sourceID, TargetID: targetID}
	row := r.db.QueryRowContext(ctx, `
INSERT INTO workspace_links (source_workspace_id, target_workspace_id)
VALUES ($1, $2)
RETURNING created_at
`, sourceID, targetID)
	if err := row.Scan(&link.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return nil, domain.WrapError(domain.ErrDuplicateLink, "create link", fmt.Errorf("%d -> %d", sourceID, targetID))
			case pgCheckViolation:
				return nil, domain.WrapError(domain.ErrSelfLink, "create link", fmt.Errorf("workspace %d", sourceID))
			}
		}
		return nil, fmt.Errorf("insert link: %w", err)
	}
	return &link, nil
}

func (r *WorkspaceRepository) DeleteLink(ctx context.Context, userID string, sourceID, targetID int64) error {
	if _, err := r.GetOwned(ctx, userID, sourceID); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
DELETE FROM workspace_links
WHERE source_workspace_id = $1 AND target_workspace_id = $2
`, sourceID, targetID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete link rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrLinkNotFound, "delete link", fmt.Errorf("%d -> %d", sourceID, targetID))
	}
	return nil
}
