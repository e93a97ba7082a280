package store

import (
	"sync"
	"time"

	"sme_health/pkg/core/analysis"
)

// UploadStore keeps analyses of ad-hoc uploads between requests.
type UploadStore interface {
	Put(id string, a *analysis.EntityAnalysis)
	Get(id string) (*analysis.EntityAnalysis, bool)
	Delete(id string)
	Purge(maxAge time.Duration) int
	Len() int
}

type upload struct {
	analysis *analysis.EntityAnalysis
	storedAt time.Time
}

// MemoryUploadStore is an UploadStore guarded by a RWMutex.
type MemoryUploadStore struct {
	mu      sync.RWMutex
	uploads map[string]upload
	now     func() time.Time
}

// NewMemoryUploadStore returns an empty store.
func NewMemoryUploadStore() *MemoryUploadStore {
	return &MemoryUploadStore{uploads: make(map[string]upload), now: time.Now}
}

// Put stores or replaces an upload.
func (s *MemoryUploadStore) Put(id string, a *analysis.EntityAnalysis) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[id] = upload{analysis: a, storedAt: s.now()}
}

// Get returns the analysis stored under id.
func (s *MemoryUploadStore) Get(id string) (*analysis.EntityAnalysis, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[id]
	return u.analysis, ok
}

// Delete removes an upload.
func (s *MemoryUploadStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, id)
}

// Purge drops uploads older than maxAge and reports how many went.
func (s *MemoryUploadStore) Purge(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	n := 0
	for id, u := range s.uploads {
		if u.storedAt.Before(cutoff) {
			delete(s.uploads, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored uploads.
func (s *MemoryUploadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}
