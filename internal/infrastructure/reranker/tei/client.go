package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/infrastructure/resilience"
)

// Client calls a text-embeddings-inference style cross-encoder service.
// Reranking is best-effort for callers, so errors here only need to be
// accurate, not recovered from.
type Client struct {
	baseURL    string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		exec:       exec,
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankScore struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Rerank re-orders units by cross-encoder relevance. Candidates the model
// does not score keep their incoming order after all scored ones. Ties sort
// by incoming position so the ordering stays deterministic.
func (c *Client) Rerank(ctx context.Context, query string, units []domain.TextUnit, limit int) ([]domain.TextUnit, error) {
	if len(units) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(units))
	for _, u := range units {
		texts = append(texts, u.Content)
	}

	var scores []rerankScore
	err := c.exec.Execute(ctx, "rerank", func(ctx context.Context) error {
		return c.postRerank(ctx, rerankRequest{Query: query, Texts: texts}, &scores)
	}, classifyRerankError)
	if err != nil {
		return nil, err
	}

	type scored struct {
		unit     domain.TextUnit
		score    float64
		hasScore bool
		position int
	}

	ordered := make([]scored, len(units))
	for i, u := range units {
		ordered[i] = scored{unit: u, position: i}
	}
	for _, s := range scores {
		if s.Index < 0 || s.Index >= len(ordered) {
			continue
		}
		ordered[s.Index].score = s.Score
		ordered[s.Index].hasScore = true
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.hasScore != b.hasScore {
			return a.hasScore
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.position < b.position
	})

	out := make([]domain.TextUnit, 0, len(ordered))
	for _, s := range ordered {
		unit := s.unit
		if s.hasScore {
			unit.Score = s.score
		}
		out = append(out, unit)
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (c *Client) postRerank(ctx context.Context, payload rerankRequest, out *[]rerankScore) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &statusError{
			statusCode: resp.StatusCode,
			status:     resp.Status,
			body:       strings.TrimSpace(string(msg)),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}

type statusError struct {
	statusCode int
	status     string
	body       string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("rerank status: %s", e.status)
	}
	return fmt.Sprintf("rerank status: %s: %s", e.status, e.body)
}

func classifyRerankError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		switch statusErr.statusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
