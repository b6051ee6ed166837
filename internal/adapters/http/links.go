package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// workspaceLinks dispatches the link-graph routes:
//
//	GET    /v1/workspaces/{id}/links
//	POST   /v1/workspaces/{id}/links
//	DELETE /v1/workspaces/{id}/links/{target_id}
func (rt *Router) workspaceLinks(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if strings.TrimSpace(userID) == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "X-User-Id header is required"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/workspaces/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 || parts[1] != "links" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	workspaceID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || workspaceID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workspace id"})
		return
	}

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		rt.listLinks(w, r, userID, workspaceID)
	case len(parts) == 2 && r.Method == http.MethodPost:
		rt.createLink(w, r, userID, workspaceID)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		targetID, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil || targetID <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid target workspace id"})
			return
		}
		rt.deleteLink(w, r, userID, workspaceID, targetID)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listLinks(w http.ResponseWriter, r *http.Request, userID string, workspaceID int64) {
	links, err := rt.linker.Links(r.Context(), userID, workspaceID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, links)
}

func (rt *Router) createLink(w http.ResponseWriter, r *http.Request, userID string, workspaceID int64) {
	var req struct {
		TargetWorkspaceID int64 `json:"target_workspace_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.TargetWorkspaceID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_workspace_id is required"})
		return
	}

	link, err := rt.linker.Link(r.Context(), userID, workspaceID, req.TargetWorkspaceID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (rt *Router) deleteLink(w http.ResponseWriter, r *http.Request, userID string, workspaceID, targetID int64) {
	if err := rt.linker.Unlink(r.Context(), userID, workspaceID, targetID); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
