package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

type retrieverFake struct {
	result   *domain.RetrievalResult
	err      error
	gotQuery domain.RetrievalQuery
}

func (f *retrieverFake) Retrieve(_ context.Context, query domain.RetrievalQuery) (*domain.RetrievalResult, error) {
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var request mcp.CallToolRequest
	request.Params.Name = "search_workspace"
	request.Params.Arguments = args
	return request
}

func TestHandleSearchWorkspaceReturnsResults(t *testing.T) {
	retriever := &retrieverFake{result: &domain.RetrievalResult{
		Units: []domain.TextUnit{{ID: "c1", WorkspaceID: 1, Content: "pricing", Score: 0.5}},
	}}
	server := NewServer(retriever, slog.New(slog.DiscardHandler))

	result, err := server.handleSearchWorkspace(context.Background(), callRequest(map[string]interface{}{
		"user_id":      "u1",
		"workspace_id": float64(1),
		"query":        "pricing plans",
		"top_k":        float64(5),
	}))
	if err != nil {
		t.Fatalf("handleSearchWorkspace() error = %v", err)
	}

	text := resultText(t, result)
	var payload struct {
		Results  []map[string]any `json:"results"`
		Degraded bool             `json:"degraded"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if len(payload.Results) != 1 || payload.Results[0]["id"] != "c1" {
		t.Fatalf("unexpected results %v", payload.Results)
	}
	if retriever.gotQuery.TopK != 5 || retriever.gotQuery.UserID != "u1" {
		t.Fatalf("unexpected query %+v", retriever.gotQuery)
	}
}

func TestHandleSearchWorkspaceRequiresQuery(t *testing.T) {
	server := NewServer(&retrieverFake{}, slog.New(slog.DiscardHandler))

	_, err := server.handleSearchWorkspace(context.Background(), callRequest(map[string]interface{}{
		"user_id":      "u1",
		"workspace_id": float64(1),
	}))
	if err == nil || !strings.Contains(err.Error(), "query") {
		t.Fatalf("expected query validation error, got %v", err)
	}
}

func TestHandleSearchWorkspaceMapsIndexOutage(t *testing.T) {
	retriever := &retrieverFake{err: domain.WrapError(domain.ErrIndexUnavailable, "hybrid search", errors.New("both methods failed"))}
	server := NewServer(retriever, slog.New(slog.DiscardHandler))

	_, err := server.handleSearchWorkspace(context.Background(), callRequest(map[string]interface{}{
		"user_id":      "u1",
		"workspace_id": float64(1),
		"query":        "q",
	}))
	var mcpErr *mcpError
	if !errors.As(err, &mcpErr) || mcpErr.Code != errorCodeIndexUnavailable {
		t.Fatalf("expected index unavailable code, got %v", err)
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatalf("expected tool result content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}
