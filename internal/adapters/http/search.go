package httpadapter

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

type searchRequest struct {
	Query           string   `json:"query"`
	WorkspaceID     int64    `json:"workspace_id"`
	CrossWorkspaces bool     `json:"cross_workspaces"`
	Granularity     string   `json:"granularity"`
	SourceTypes     []string `json:"source_types"`
	TopK            int      `json:"top_k"`
	Rerank          bool     `json:"rerank"`
	Mode            string   `json:"mode"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	userID := userIDFromRequest(r)
	if strings.TrimSpace(userID) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "X-User-Id header is required"})
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	query, err := req.toDomain(userID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.retriever.Retrieve(r.Context(), query)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (req searchRequest) toDomain(userID string) (domain.RetrievalQuery, error) {
	granularity, err := domain.ParseGranularity(req.Granularity)
	if err != nil {
		return domain.RetrievalQuery{}, err
	}
	mode, err := domain.ParseSearchMode(req.Mode)
	if err != nil {
		return domain.RetrievalQuery{}, err
	}

	var sourceTypes []domain.SourceType
	for _, raw := range req.SourceTypes {
		st, err := domain.ParseSourceType(raw)
		if err != nil {
			return domain.RetrievalQuery{}, err
		}
		sourceTypes = append(sourceTypes, st)
	}

	if req.TopK < 0 {
		return domain.RetrievalQuery{}, domain.WrapError(domain.ErrInvalidInput, "parse search request", fmt.Errorf("top_k must not be negative"))
	}

	return domain.RetrievalQuery{
		Query:           req.Query,
		UserID:          userID,
		WorkspaceID:     req.WorkspaceID,
		CrossWorkspaces: req.CrossWorkspaces,
		Granularity:     granularity,
		SourceTypes:     sourceTypes,
		TopK:            req.TopK,
		Rerank:          req.Rerank,
		Mode:            mode,
	}, nil
}
