package usecase

import (
	"testing"
	"time"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

func TestResultCacheRoundTrip(t *testing.T) {
	cache, err := newResultCache(8, time.Minute)
	if err != nil {
		t.Fatalf("newResultCache() error = %v", err)
	}

	query := baseQuery()
	scope := []int64{1, 2}
	key := cacheKey(query, scope)

	if _, ok := cache.get(key); ok {
		t.Fatalf("expected miss for empty cache")
	}

	cache.put(key, scope, domain.RetrievalResult{Units: []domain.TextUnit{unit("a")}})
	got, ok := cache.get(key)
	if !ok || len(got.Units) != 1 || got.Units[0].ID != "a" {
		t.Fatalf("expected cached result, got %+v ok=%v", got, ok)
	}
}

func TestResultCacheSkipsDegradedResults(t *testing.T) {
	cache, err := newResultCache(8, time.Minute)
	if err != nil {
		t.Fatalf("newResultCache() error = %v", err)
	}

	key := cacheKey(baseQuery(), []int64{1})
	cache.put(key, []int64{1}, domain.RetrievalResult{Degraded: true})
	if _, ok := cache.get(key); ok {
		t.Fatalf("degraded results must not be cached")
	}
}

func TestResultCacheExpires(t *testing.T) {
	cache, err := newResultCache(8, time.Millisecond)
	if err != nil {
		t.Fatalf("newResultCache() error = %v", err)
	}

	key := cacheKey(baseQuery(), []int64{1})
	cache.put(key, []int64{1}, domain.RetrievalResult{Units: []domain.TextUnit{unit("a")}})
	time.Sleep(5 * time.Millisecond)
	if _, ok := cache.get(key); ok {
		t.Fatalf("expected expired entry")
	}
}

func TestResultCacheInvalidateWorkspaceOnlyTouchesScopedEntries(t *testing.T) {
	cache, err := newResultCache(8, time.Minute)
	if err != nil {
		t.Fatalf("newResultCache() error = %v", err)
	}

	queryA := baseQuery()
	queryB := baseQuery()
	queryB.WorkspaceID = 9

	keyA := cacheKey(queryA, []int64{1, 2})
	keyB := cacheKey(queryB, []int64{9})
	cache.put(keyA, []int64{1, 2}, domain.RetrievalResult{Units: []domain.TextUnit{unit("a")}})
	cache.put(keyB, []int64{9}, domain.RetrievalResult{Units: []domain.TextUnit{unit("b")}})

	cache.invalidateWorkspace(2)

	if _, ok := cache.get(keyA); ok {
		t.Fatalf("expected entry scoped to workspace 2 to be dropped")
	}
	if _, ok := cache.get(keyB); !ok {
		t.Fatalf("expected unrelated entry to survive")
	}
}

func TestCacheKeyDependsOnQueryShape(t *testing.T) {
	query := baseQuery()
	scope := []int64{1}

	other := query
	other.TopK = 7
	if cacheKey(query, scope) == cacheKey(other, scope) {
		t.Fatalf("expected different keys for different top_k")
	}

	withFilter := query
	withFilter.SourceTypes = []domain.SourceType{domain.SourceSlack}
	if cacheKey(query, scope) == cacheKey(withFilter, scope) {
		t.Fatalf("expected different keys for different source filters")
	}

	if cacheKey(query, scope) != cacheKey(query, []int64{1}) {
		t.Fatalf("expected identical keys for identical inputs")
	}
}
