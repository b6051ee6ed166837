package domain

import (
	"fmt"
	"strings"
)

type SearchMode string

const (
	ModeHybrid  SearchMode = "hybrid"
	ModeVector  SearchMode = "vector"
	ModeLexical SearchMode = "lexical"
)

func ParseSearchMode(s string) (SearchMode, error) {
	switch SearchMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeHybrid, "":
		return ModeHybrid, nil
	case ModeVector:
		return ModeVector, nil
	case ModeLexical:
		return ModeLexical, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse search mode", fmt.Errorf("unknown search mode %q", s))
	}
}

// RetrievalQuery describes one retrieval call. It lives only for the duration
// of that call and is never persisted.
type RetrievalQuery struct {
	Query           string
	UserID          string
	WorkspaceID     int64
	CrossWorkspaces bool
	Granularity     Granularity
	SourceTypes     []SourceType
	TopK            int
	Rerank          bool
	Mode            SearchMode
}

func (q RetrievalQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("query text is required"))
	}
	if strings.TrimSpace(q.UserID) == "" {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("user id is required"))
	}
	if q.WorkspaceID <= 0 {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("workspace id is required"))
	}
	if q.TopK < 0 {
		return WrapError(ErrInvalidInput, "validate query", fmt.Errorf("top_k must not be negative"))
	}
	return nil
}

// RankedCandidate carries the per-method ranks assigned during one retrieval
// call. A zero rank means the method did not return the unit.
type RankedCandidate struct {
	Unit        TextUnit
	VectorRank  int
	LexicalRank int
	Score       float64
}

// BestRank is the lowest-numbered rank the candidate received in any method.
func (c RankedCandidate) BestRank() int {
	switch {
	case c.VectorRank > 0 && (c.LexicalRank == 0 || c.VectorRank < c.LexicalRank):
		return c.VectorRank
	case c.LexicalRank > 0:
		return c.LexicalRank
	default:
		return 0
	}
}

// RetrievalResult is the final ordered answer of one retrieval call. Degraded
// is set when exactly one search method failed and results were built from the
// surviving method alone.
type RetrievalResult struct {
	Units          []TextUnit `json:"results"`
	Degraded       bool       `json:"degraded"`
	DegradedMethod string     `json:"degraded_method,omitempty"`
}
