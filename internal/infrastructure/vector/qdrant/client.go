package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

// Client reads the dense index maintained in qdrant by the indexing
// collaborator. Points carry one payload entry per TextUnit field; the
// collection itself is created by the writer, never here.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
}

func New(baseURL, collection string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Search(
	ctx context.Context,
	queryVector []float32,
	scope []int64,
	granularity domain.Granularity,
	sourceTypes []domain.SourceType,
	limit int,
) ([]domain.TextUnit, error) {
	must := []map[string]any{
		{
			"key":   "workspace_id",
			"match": map[string]any{"any": scope},
		},
		{
			"key":   "granularity",
			"match": map[string]any{"value": string(granularity)},
		},
	}
	if len(sourceTypes) > 0 {
		types := make([]string, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			types = append(types, string(st))
		}
		must = append(must, map[string]any{
			"key":   "source_type",
			"match": map[string]any{"any": types},
		})
	}

	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"filter":       map[string]any{"must": must},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if trimmed := strings.TrimSpace(string(msg)); trimmed != "" {
			return nil, fmt.Errorf("qdrant search status: %s: %s", resp.Status, trimmed)
		}
		return nil, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.TextUnit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		unit := payloadToUnit(r.Payload)
		unit.Score = r.Score
		out = append(out, unit)
	}
	return out, nil
}

func payloadToUnit(payload map[string]any) domain.TextUnit {
	unit := domain.TextUnit{
		ID:          getStringPayload(payload, "unit_id"),
		DocumentID:  getStringPayload(payload, "document_id"),
		WorkspaceID: getInt64Payload(payload, "workspace_id"),
		Granularity: domain.Granularity(getStringPayload(payload, "granularity")),
		SourceType:  domain.SourceType(getStringPayload(payload, "source_type")),
		Content:     getStringPayload(payload, "content"),
	}
	if ts := getStringPayload(payload, "created_at"); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			unit.CreatedAt = parsed
		}
	}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		unit.Metadata = domain.DecodeSourceMetadata(unit.SourceType, raw)
	}
	return unit
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func getInt64Payload(payload map[string]any, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
