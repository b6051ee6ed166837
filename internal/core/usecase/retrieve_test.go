package usecase

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/kirillkom/workspace-search/internal/core/domain"
	"github.com/kirillkom/workspace-search/internal/core/ports"
)

type embedderFake struct {
	vector []float32
	err    error
}

func (f *embedderFake) EmbedQuery(ctx context.Context, _ string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.vector == nil {
		return []float32{0.1, 0.2}, nil
	}
	return f.vector, nil
}

type vectorIndexFake struct {
	units     []domain.TextUnit
	err       error
	gotScope  []int64
	gotLimit  int
	gotFilter []domain.SourceType
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, scope []int64, _ domain.Granularity, sourceTypes []domain.SourceType, limit int) ([]domain.TextUnit, error) {
	f.gotScope = scope
	f.gotLimit = limit
	f.gotFilter = sourceTypes
	if f.err != nil {
		return nil, f.err
	}
	return f.units, nil
}

type lexicalIndexFake struct {
	units []domain.TextUnit
	err   error
}

func (f *lexicalIndexFake) Search(ctx context.Context, _ string, _ []int64, _ domain.Granularity, _ []domain.SourceType, _ int) ([]domain.TextUnit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.units, nil
}

type rerankerFake struct {
	units  []domain.TextUnit
	err    error
	called bool
}

func (f *rerankerFake) Rerank(_ context.Context, _ string, units []domain.TextUnit, limit int) ([]domain.TextUnit, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	if f.units != nil {
		return f.units, nil
	}
	if limit > 0 && len(units) > limit {
		units = units[:limit]
	}
	return units, nil
}

func newRetrieveUC(t *testing.T, store *workspaceStoreFake, emb *embedderFake, vec *vectorIndexFake, lex *lexicalIndexFake, rr ports.Reranker, opts RetrieveOptions) *HybridRetrieveUseCase {
	t.Helper()
	uc, err := NewHybridRetrieveUseCase(
		NewScopeResolver(store), emb, vec, lex, rr,
		slog.New(slog.DiscardHandler), nil, opts,
	)
	if err != nil {
		t.Fatalf("NewHybridRetrieveUseCase() error = %v", err)
	}
	return uc
}

func chunk(id, content string) domain.TextUnit {
	return domain.TextUnit{ID: id, DocumentID: "doc-" + id, WorkspaceID: 1, Granularity: domain.GranularityChunk, Content: content, SourceType: domain.SourceFile}
}

func baseQuery() domain.RetrievalQuery {
	return domain.RetrievalQuery{
		Query:       "what are the pricing plans",
		UserID:      "u1",
		WorkspaceID: 1,
		TopK:        2,
	}
}

func TestRetrieveHybridEndToEnd(t *testing.T) {
	// c1 and c3 hold identical pricing content and win in both methods; c2
	// only appears far down the vector list and must not survive top_k=2.
	c1 := chunk("c1", "pricing plans overview")
	c2 := chunk("c2", "refund policy details")
	c3 := chunk("c3", "pricing plans overview")

	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{units: []domain.TextUnit{c1, c3, c2}}
	lex := &lexicalIndexFake{units: []domain.TextUnit{c3, c1}}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, nil, RetrieveOptions{})

	result, err := uc.Retrieve(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Degraded {
		t.Fatalf("expected non-degraded result")
	}
	if len(result.Units) != 2 {
		t.Fatalf("expected 2 results, got %d", len(result.Units))
	}
	// c1 and c3 tie on score and best rank; identifier ascending decides.
	if result.Units[0].ID != "c1" || result.Units[1].ID != "c3" {
		t.Fatalf("expected [c1 c3], got [%s %s]", result.Units[0].ID, result.Units[1].ID)
	}
	if vec.gotLimit != 4 {
		t.Fatalf("expected 2x over-fetch limit 4, got %d", vec.gotLimit)
	}
}

func TestRetrieveDegradedWhenLexicalFails(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	units := []domain.TextUnit{chunk("a", "x"), chunk("b", "y"), chunk("c", "z"), chunk("d", "w"), chunk("e", "v")}
	vec := &vectorIndexFake{units: units}
	lex := &lexicalIndexFake{err: errors.New("fts down")}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, nil, RetrieveOptions{})

	query := baseQuery()
	query.TopK = 5

	result, err := uc.Retrieve(context.Background(), query)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Degraded {
		t.Fatalf("expected degraded result")
	}
	if result.DegradedMethod != methodLexical {
		t.Fatalf("expected lexical degradation, got %q", result.DegradedMethod)
	}
	if len(result.Units) != 5 {
		t.Fatalf("expected 5 vector-only results, got %d", len(result.Units))
	}
	if result.Units[0].ID != "a" {
		t.Fatalf("expected vector order preserved, got %s first", result.Units[0].ID)
	}
}

func TestRetrieveDegradedWhenEmbeddingFails(t *testing.T) {
	// An embedding failure kills the vector method only; lexical still
	// carries the call.
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{}
	lex := &lexicalIndexFake{units: []domain.TextUnit{chunk("a", "x")}}
	uc := newRetrieveUC(t, store, &embedderFake{err: errors.New("embed down")}, vec, lex, nil, RetrieveOptions{})

	result, err := uc.Retrieve(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !result.Degraded || result.DegradedMethod != methodVector {
		t.Fatalf("expected vector degradation, got %+v", result)
	}
}

func TestRetrieveFailsWhenBothMethodsFail(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{err: errors.New("qdrant down")}
	lex := &lexicalIndexFake{err: errors.New("fts down")}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, nil, RetrieveOptions{})

	_, err := uc.Retrieve(context.Background(), baseQuery())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestRetrieveScopeFailureIsFatal(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{}}
	uc := newRetrieveUC(t, store, &embedderFake{}, &vectorIndexFake{}, &lexicalIndexFake{}, nil, RetrieveOptions{})

	_, err := uc.Retrieve(context.Background(), baseQuery())
	if !domain.IsKind(err, domain.ErrWorkspaceNotFound) {
		t.Fatalf("expected ErrWorkspaceNotFound, got %v", err)
	}
}

func TestRetrieveRerankFailurePassesThroughFusedOrder(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{units: []domain.TextUnit{chunk("a", "x"), chunk("b", "y")}}
	lex := &lexicalIndexFake{units: []domain.TextUnit{chunk("a", "x")}}
	reranker := &rerankerFake{err: errors.New("model down")}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, reranker, RetrieveOptions{})

	query := baseQuery()
	query.Rerank = true

	result, err := uc.Retrieve(context.Background(), query)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if !reranker.called {
		t.Fatalf("expected reranker to be invoked")
	}
	if len(result.Units) != 2 || result.Units[0].ID != "a" || result.Units[1].ID != "b" {
		t.Fatalf("expected pre-rerank fused order [a b], got %v", resultIDs(result))
	}
}

func TestRetrieveRerankReorders(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	a, b := chunk("a", "x"), chunk("b", "y")
	vec := &vectorIndexFake{units: []domain.TextUnit{a, b}}
	lex := &lexicalIndexFake{units: []domain.TextUnit{a, b}}
	reranker := &rerankerFake{units: []domain.TextUnit{b, a}}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, reranker, RetrieveOptions{})

	query := baseQuery()
	query.Rerank = true

	result, err := uc.Retrieve(context.Background(), query)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if result.Units[0].ID != "b" {
		t.Fatalf("expected reranked order [b a], got %v", resultIDs(result))
	}
}

func TestRetrieveSingleMethodModes(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{units: []domain.TextUnit{chunk("v", "x")}}
	lex := &lexicalIndexFake{units: []domain.TextUnit{chunk("l", "y")}}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, nil, RetrieveOptions{})

	query := baseQuery()
	query.Mode = domain.ModeVector
	result, err := uc.Retrieve(context.Background(), query)
	if err != nil {
		t.Fatalf("Retrieve(vector) error = %v", err)
	}
	if len(result.Units) != 1 || result.Units[0].ID != "v" {
		t.Fatalf("expected vector-only results, got %v", resultIDs(result))
	}

	query.Mode = domain.ModeLexical
	result, err = uc.Retrieve(context.Background(), query)
	if err != nil {
		t.Fatalf("Retrieve(lexical) error = %v", err)
	}
	if len(result.Units) != 1 || result.Units[0].ID != "l" {
		t.Fatalf("expected lexical-only results, got %v", resultIDs(result))
	}

	// A single-method outage has no surviving method to degrade to.
	query.Mode = domain.ModeLexical
	lex.err = errors.New("fts down")
	if _, err := uc.Retrieve(context.Background(), query); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestRetrieveCachesNonDegradedResults(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	vec := &vectorIndexFake{units: []domain.TextUnit{chunk("a", "x")}}
	lex := &lexicalIndexFake{units: []domain.TextUnit{chunk("a", "x")}}
	uc := newRetrieveUC(t, store, &embedderFake{}, vec, lex, nil, RetrieveOptions{})

	if _, err := uc.Retrieve(context.Background(), baseQuery()); err != nil {
		t.Fatalf("first Retrieve() error = %v", err)
	}

	// A repeat query must be served from cache even if the indexes go away.
	vec.err = errors.New("down")
	lex.err = errors.New("down")
	result, err := uc.Retrieve(context.Background(), baseQuery())
	if err != nil {
		t.Fatalf("cached Retrieve() error = %v", err)
	}
	if len(result.Units) != 1 {
		t.Fatalf("expected cached result, got %v", resultIDs(result))
	}

	// Invalidation brings the outage back into view.
	uc.InvalidateWorkspace(1)
	if _, err := uc.Retrieve(context.Background(), baseQuery()); !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable after invalidation, got %v", err)
	}
}

func TestRetrieveValidatesInput(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	uc := newRetrieveUC(t, store, &embedderFake{}, &vectorIndexFake{}, &lexicalIndexFake{}, nil, RetrieveOptions{})

	query := baseQuery()
	query.Query = "   "
	if _, err := uc.Retrieve(context.Background(), query); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRetrieveCancelledContext(t *testing.T) {
	store := &workspaceStoreFake{owned: map[int64]string{1: "u1"}}
	uc := newRetrieveUC(t, store, &embedderFake{}, &vectorIndexFake{}, &lexicalIndexFake{}, nil, RetrieveOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Retrieve(ctx, baseQuery())
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func resultIDs(result *domain.RetrievalResult) []string {
	out := make([]string, 0, len(result.Units))
	for _, u := range result.Units {
		out = append(out, u.ID)
	}
	return out
}
