// Package sigcache remembers opaque thought signatures returned by the
// upstream so later turns of the same model can replay them. Continuity is
// per-model; the session id is accepted for API symmetry only.
package sigcache

import (
	"sync"
	"time"
)

// Bucket separates plain reasoning continuity from tool-call continuity.
type Bucket string

const (
	BucketReasoning Bucket = "reasoning"
	BucketTool      Bucket = "tool"
)

// Policy gates which signature classes are worth caching.
type Policy struct {
	CacheThinking        bool
	CacheToolSignatures  bool
	CacheImageSignatures bool
	CacheAll             bool
}

// Entry is a cached signature plus the thought text it was attached to.
type Entry struct {
	Signature string
	Content   string
	StoredAt  time.Time
}

type cacheKey struct {
	model  string
	bucket Bucket
}

// Cache is the process-wide signature map. Entries expire after the TTL and
// the whole cache is cleared on reload.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]Entry
	ttl     time.Duration
	policy  Policy
}

// New creates a cache with the given gating policy. A non-positive ttl
// disables expiry.
func New(policy Policy, ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[cacheKey]Entry),
		ttl:     ttl,
		policy:  policy,
	}
}

// SetOptions describe the request context the signature was captured in.
type SetOptions struct {
	HasTools     bool
	IsImageModel bool
}

// Set stores the signature if the gating policy admits the combination.
// Returns true when the entry was stored.
func (c *Cache) Set(sessionID, model, signature, content string, opts SetOptions) bool {
	_ = sessionID
	if signature == "" || model == "" {
		return false
	}
	if !c.shouldCache(opts) {
		return false
	}
	bucket := BucketReasoning
	if opts.HasTools {
		bucket = BucketTool
	}
	c.mu.Lock()
	c.entries[cacheKey{model: model, bucket: bucket}] = Entry{
		Signature: signature,
		Content:   content,
		StoredAt:  time.Now(),
	}
	c.mu.Unlock()
	return true
}

// Get returns the most recent matching entry for (model, bucket).
func (c *Cache) Get(sessionID, model string, hasTools bool) (Entry, bool) {
	_ = sessionID
	bucket := BucketReasoning
	if hasTools {
		bucket = BucketTool
	}
	c.mu.RLock()
	entry, ok := c.entries[cacheKey{model: model, bucket: bucket}]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	if c.ttl > 0 && time.Since(entry.StoredAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, cacheKey{model: model, bucket: bucket})
		c.mu.Unlock()
		return Entry{}, false
	}
	return entry, true
}

// shouldCache is a disjunction: any enabled class the options fall into
// admits the entry. Plain reasoning is the class with neither flag set.
func (c *Cache) shouldCache(opts SetOptions) bool {
	switch {
	case c.policy.CacheAll:
		return true
	case opts.HasTools && c.policy.CacheToolSignatures:
		return true
	case opts.IsImageModel && c.policy.CacheImageSignatures:
		return true
	default:
		return !opts.HasTools && !opts.IsImageModel && c.policy.CacheThinking
	}
}

// Clear drops all entries; used by tests and config reloads.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]Entry)
	c.mu.Unlock()
}

// Len reports the number of live entries (monitoring).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
