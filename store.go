package cacheproxy

import (
	"net/http"
	"sync"
)

// CacheKey is an opaque string identifying a cached response. Keys are
// produced by a CacheKeyFunc and are meaningless to the store itself.
type CacheKey = string

// CachedResponse is a captured origin reply. It is immutable once it has
// been handed to CacheStore.Set or CacheStore.SetNegative; callers that read
// it back always get an independent copy.
type CachedResponse struct {
	Status uint16
	Header http.Header
	Body   []byte
}

func (c CachedResponse) clone() CachedResponse {
	h := make(http.Header, len(c.Header))
	for k, v := range c.Header {
		vv := make([]string, len(v))
		copy(vv, v)
		h[k] = vv
	}
	b := make([]byte, len(c.Body))
	copy(b, c.Body)
	return CachedResponse{Status: c.Status, Header: h, Body: b}
}

// DefaultNegativeCacheCapacity is the number of 404 entries retained when a
// ProxyConfig doesn't specify Negative404Capacity explicitly.
const DefaultNegativeCacheCapacity = 100

// cache entries are stored compressed whenever their body is at least this
// large; see bodycodec.go. 404 bodies are usually small, but
// positive entries can be arbitrarily large, so both maps use the same
// threshold.
const compressThreshold = 1024

// CacheStore holds the positive map (CacheKey -> CachedResponse, unbounded)
// and the bounded negative (404) map plus its FIFO eviction order described
// in spec.md §4.3. Concurrent readers never block each other; writers
// exclude readers and other writers for the duration of one operation.
type CacheStore struct {
	posMu sync.RWMutex
	pos   map[CacheKey]storedEntry

	negMu    sync.RWMutex
	neg      map[CacheKey]storedEntry
	negOrder []CacheKey // FIFO; oldest first
	negCap   int
}

type storedEntry struct {
	status     uint16
	header     http.Header
	body       []byte
	compressed bool
}

// NewCacheStore constructs an empty store. negativeCapacity of zero disables
// the negative map entirely: SetNegative then falls back to the positive map.
func NewCacheStore(negativeCapacity int) *CacheStore {
	return &CacheStore{
		pos:    make(map[CacheKey]storedEntry),
		neg:    make(map[CacheKey]storedEntry),
		negCap: negativeCapacity,
	}
}

func toStoredEntry(r CachedResponse) storedEntry {
	body, compressed := maybeCompress(r.Body)
	return storedEntry{status: r.Status, header: r.Header.Clone(), body: body, compressed: compressed}
}

func (e storedEntry) toCachedResponse() CachedResponse {
	body, err := maybeDecompress(e.body, e.compressed)
	if err != nil {
		GetLogger().Warn("failed to decompress cached body", "error", err)
		body = nil
	}
	return CachedResponse{Status: e.status, Header: e.header, Body: body}.clone()
}

// Get returns a copy of the positive-map entry for key, or (zero, false).
func (s *CacheStore) Get(key CacheKey) (CachedResponse, bool) {
	s.posMu.RLock()
	e, ok := s.pos[key]
	s.posMu.RUnlock()
	if !ok {
		return CachedResponse{}, false
	}
	return e.toCachedResponse(), true
}

// GetNegative returns a copy of the negative-map entry for key, or (zero, false).
func (s *CacheStore) GetNegative(key CacheKey) (CachedResponse, bool) {
	s.negMu.RLock()
	e, ok := s.neg[key]
	s.negMu.RUnlock()
	if !ok {
		return CachedResponse{}, false
	}
	return e.toCachedResponse(), true
}

// Set inserts or replaces the positive-map entry for key.
func (s *CacheStore) Set(key CacheKey, resp CachedResponse) {
	e := toStoredEntry(resp)
	s.posMu.Lock()
	s.pos[key] = e
	s.posMu.Unlock()
}

// SetNegative inserts or replaces the negative-map entry for key, evicting
// the oldest entry once the map exceeds its configured capacity. Re-inserting
// an existing key moves it to the tail of the FIFO (most-recently-written).
//
// A capacity of zero disables the negative map entirely; per spec.md §9's
// resolution of its own open question, a 404 then falls back to the positive
// map instead of being dropped.
func (s *CacheStore) SetNegative(key CacheKey, resp CachedResponse) {
	if s.negCap == 0 {
		s.Set(key, resp)
		return
	}
	e := toStoredEntry(resp)

	s.negMu.Lock()
	defer s.negMu.Unlock()

	if _, exists := s.neg[key]; exists {
		s.removeFromOrderLocked(key)
	}
	s.neg[key] = e
	s.negOrder = append(s.negOrder, key)

	for len(s.negOrder) > s.negCap {
		oldest := s.negOrder[0]
		s.negOrder = s.negOrder[1:]
		delete(s.neg, oldest)
	}
}

func (s *CacheStore) removeFromOrderLocked(key CacheKey) {
	for i, k := range s.negOrder {
		if k == key {
			s.negOrder = append(s.negOrder[:i], s.negOrder[i+1:]...)
			return
		}
	}
}

// Clear empties both maps and the negative FIFO.
func (s *CacheStore) Clear() {
	s.posMu.Lock()
	s.pos = make(map[CacheKey]storedEntry)
	s.posMu.Unlock()

	s.negMu.Lock()
	s.neg = make(map[CacheKey]storedEntry)
	s.negOrder = nil
	s.negMu.Unlock()
}

// ClearByPattern deletes every key in either map that matches pattern, using
// path-only glob semantics (no method-prefix parsing — see spec.md §9: a
// pattern used for invalidation is matched against the full cache key
// verbatim, so "GET:/api/*" matches keys that literally start with "GET:").
func (s *CacheStore) ClearByPattern(pattern string) {
	s.posMu.Lock()
	for k := range s.pos {
		if matchGlob(k, pattern) {
			delete(s.pos, k)
		}
	}
	s.posMu.Unlock()

	s.negMu.Lock()
	for k := range s.neg {
		if matchGlob(k, pattern) {
			delete(s.neg, k)
		}
	}
	kept := s.negOrder[:0]
	for _, k := range s.negOrder {
		if !matchGlob(k, pattern) {
			kept = append(kept, k)
		}
	}
	s.negOrder = kept
	s.negMu.Unlock()
}

// Size returns the approximate cardinality of the positive map.
func (s *CacheStore) Size() int {
	s.posMu.RLock()
	defer s.posMu.RUnlock()
	return len(s.pos)
}

// SizeNegative returns the approximate cardinality of the negative map.
func (s *CacheStore) SizeNegative() int {
	s.negMu.RLock()
	defer s.negMu.RUnlock()
	return len(s.neg)
}
