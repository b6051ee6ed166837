package usecase

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/workspace-search/internal/core/domain"
)

type cacheEntry struct {
	result    domain.RetrievalResult
	scope     map[int64]struct{}
	expiresAt time.Time
}

// resultCache memoizes successful, non-degraded retrieval results per full
// query shape. Entries expire after a short TTL and are flushed eagerly when
// an index-update event touches any workspace in their scope.
type resultCache struct {
	mu      sync.Mutex
	entries *lru.Cache[[32]byte, *cacheEntry]
	ttl     time.Duration
}

func newResultCache(size int, ttl time.Duration) (*resultCache, error) {
	if size <= 0 {
		size = 1024
	}
	entries, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &resultCache{entries: entries, ttl: ttl}, nil
}

func cacheKey(query domain.RetrievalQuery, scope []int64) [32]byte {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%t\x00%t\x00%s\x00", query.Query, query.UserID, query.Granularity, query.TopK, query.CrossWorkspaces, query.Rerank, query.Mode)
	for _, st := range query.SourceTypes {
		fmt.Fprintf(h, "%s,", st)
	}
	h.Write([]byte{0})
	for _, id := range scope {
		fmt.Fprintf(h, "%d,", id)
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (c *resultCache) get(key [32]byte) (*domain.RetrievalResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.entries.Remove(key)
		return nil, false
	}
	result := entry.result
	return &result, true
}

func (c *resultCache) put(key [32]byte, scope []int64, result domain.RetrievalResult) {
	if result.Degraded {
		return
	}

	scopeSet := make(map[int64]struct{}, len(scope))
	for _, id := range scope {
		scopeSet[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Add(key, &cacheEntry{
		result:    result,
		scope:     scopeSet,
		expiresAt: time.Now().Add(c.ttl),
	})
}

func (c *resultCache) invalidateWorkspace(workspaceID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.entries.Keys() {
		entry, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		if _, hit := entry.scope[workspaceID]; hit {
			c.entries.Remove(key)
		}
	}
}
