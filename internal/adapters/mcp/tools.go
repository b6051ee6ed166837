package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

const (
	errorCodeInvalidParams    = -32602
	errorCodeInternalError    = -32603
	errorCodeNotFound         = -32001
	errorCodeIndexUnavailable = -32002
)

func searchWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_workspace",
		Description: "Search the text units of a workspace with hybrid dense and lexical retrieval",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_id": map[string]interface{}{
					"type":        "string",
					"description": "Identity of the calling user; searches are scoped to workspaces this user owns",
				},
				"workspace_id": map[string]interface{}{
					"type":        "integer",
					"description": "Primary workspace to search",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"cross_workspaces": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include workspaces linked one hop away from the primary one",
					"default":     false,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Retrieval strategy",
					"enum":        []string{"hybrid", "vector", "lexical"},
					"default":     "hybrid",
				},
				"granularity": map[string]interface{}{
					"type":        "string",
					"description": "Search whole documents or individual chunks",
					"enum":        []string{"document", "chunk"},
					"default":     "chunk",
				},
				"rerank": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-score candidates with the cross-encoder reranker",
					"default":     false,
				},
				"source_types": map[string]interface{}{
					"type":        "array",
					"description": "Restrict results to these content origins",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"user_id", "workspace_id", "query"},
		},
	}
}

func (s *Server) handleSearchWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(errorCodeInvalidParams, "invalid arguments", nil)
	}

	userID, _ := args["user_id"].(string)
	if userID == "" {
		return nil, newMCPError(errorCodeInvalidParams, "user_id parameter is required", nil)
	}
	queryText, _ := args["query"].(string)
	if queryText == "" {
		return nil, newMCPError(errorCodeInvalidParams, "query parameter is required", nil)
	}
	workspaceID := getInt64(args, "workspace_id")
	if workspaceID <= 0 {
		return nil, newMCPError(errorCodeInvalidParams, "workspace_id parameter is required", nil)
	}

	granularity, err := domain.ParseGranularity(getStringDefault(args, "granularity", ""))
	if err != nil {
		return nil, newMCPError(errorCodeInvalidParams, err.Error(), nil)
	}
	mode, err := domain.ParseSearchMode(getStringDefault(args, "mode", ""))
	if err != nil {
		return nil, newMCPError(errorCodeInvalidParams, err.Error(), nil)
	}

	var sourceTypes []domain.SourceType
	if rawTypes, ok := args["source_types"].([]interface{}); ok {
		for _, raw := range rawTypes {
			name, _ := raw.(string)
			st, err := domain.ParseSourceType(name)
			if err != nil {
				return nil, newMCPError(errorCodeInvalidParams, err.Error(), nil)
			}
			sourceTypes = append(sourceTypes, st)
		}
	}

	query := domain.RetrievalQuery{
		Query:           queryText,
		UserID:          userID,
		WorkspaceID:     workspaceID,
		CrossWorkspaces: getBoolDefault(args, "cross_workspaces", false),
		Granularity:     granularity,
		SourceTypes:     sourceTypes,
		TopK:            getIntDefault(args, "top_k", 0),
		Rerank:          getBoolDefault(args, "rerank", false),
		Mode:            mode,
	}

	result, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, mapDomainError(err)
	}

	units := make([]map[string]interface{}, 0, len(result.Units))
	for _, u := range result.Units {
		units = append(units, map[string]interface{}{
			"id":           u.ID,
			"document_id":  u.DocumentID,
			"workspace_id": u.WorkspaceID,
			"source_type":  string(u.SourceType),
			"content":      u.Content,
			"score":        u.Score,
		})
	}

	response := map[string]interface{}{
		"results":  units,
		"degraded": result.Degraded,
	}
	if result.DegradedMethod != "" {
		response["degraded_method"] = result.DegradedMethod
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func mapDomainError(err error) error {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return newMCPError(errorCodeInvalidParams, err.Error(), nil)
	case domain.IsKind(err, domain.ErrWorkspaceNotFound):
		return newMCPError(errorCodeNotFound, err.Error(), nil)
	case domain.IsKind(err, domain.ErrIndexUnavailable):
		return newMCPError(errorCodeIndexUnavailable, err.Error(), nil)
	default:
		return newMCPError(errorCodeInternalError, err.Error(), nil)
	}
}

type mcpError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *mcpError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func newMCPError(code int, message string, data interface{}) error {
	return &mcpError{Code: code, Message: message, Data: data}
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getInt64(args map[string]interface{}, key string) int64 {
	switch v := args[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
