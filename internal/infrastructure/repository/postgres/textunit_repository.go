package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// TextUnitRepository serves lexical full-text search over the text_units
// table maintained by the indexing collaborator. This service only reads it.
type TextUnitRepository struct {
	db *sql.DB
}

func NewTextUnitRepository(db *sql.DB) *TextUnitRepository {
	return &TextUnitRepository{db: db}
}

func (r *TextUnitRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS text_units (
	id TEXT PRIMARY KEY,
	document_id TEXT,
	workspace_id BIGINT NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
	granularity TEXT NOT NULL,
	source_type TEXT NOT NULL,
	content TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	search_vector TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_text_units_workspace ON text_units(workspace_id);
CREATE INDEX IF NOT EXISTS idx_text_units_search_vector ON text_units USING GIN (search_vector);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute text_units ddl: %w", err)
	}
	return nil
}

// Search runs websearch-syntax full-text matching ranked by ts_rank_cd.
// Rows with no lexical overlap never match the tsquery, so the result
// contains only genuinely relevant units. Ties rank by id to keep the
// ordering stable across calls.
func (r *TextUnitRepository) Search(ctx context.Context, queryText string, scope []int64, granularity domain.Granularity, sourceTypes []domain.SourceType, limit int) ([]domain.TextUnit, error) {
	query := `
SELECT t.id, t.document_id, t.workspace_id, t.granularity, t.source_type, t.content, t.metadata, t.created_at,
       ts_rank_cd(t.search_vector, q.query) AS rank
FROM text_units t, websearch_to_tsquery('english', $1) AS q(query)
WHERE t.workspace_id = ANY($2)
  AND t.granularity = $3
  AND t.search_vector @@ q.query
`
	args := []any{queryText, scope, string(granularity)}

	if len(sourceTypes) > 0 {
		filter := make([]string, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			filter = append(filter, string(st))
		}
		args = append(args, filter)
		query += fmt.Sprintf("  AND t.source_type = ANY($%d)\n", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY rank DESC, t.id\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lexical index: %w", err)
	}
	defer rows.Close()

	var units []domain.TextUnit
	for rows.Next() {
		unit, err := scanTextUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical results: %w", err)
	}
	return units, nil
}

func scanTextUnit(rows *sql.Rows) (domain.TextUnit, error) {
	var (
		unit       domain.TextUnit
		documentID sql.NullString
		sourceType string
		rawMeta    []byte
	)
	if err := rows.Scan(
		&unit.ID,
		&documentID,
		&unit.WorkspaceID,
		&unit.Granularity,
		&sourceType,
		&unit.Content,
		&rawMeta,
		&unit.CreatedAt,
		&unit.Score,
	); err != nil {
		return domain.TextUnit{}, fmt.Errorf("scan text unit: %w", err)
	}

	unit.DocumentID = documentID.String
	unit.SourceType = domain.SourceType(sourceType)

	if len(rawMeta) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(rawMeta, &payload); err != nil {
			return domain.TextUnit{}, fmt.Errorf("decode metadata for unit %s: %w", unit.ID, err)
		}
		unit.Metadata = domain.DecodeSourceMetadata(unit.SourceType, payload)
	}
	return unit, nil
}
