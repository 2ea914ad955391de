package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// stagingTTL is how long a staged analysis (and its uploaded bytes) is kept
// between the analyze and commit calls before being dropped.
const stagingTTL = 30 * time.Minute

// Staging holds analyzed uploads between the analyze and commit steps of
// the wizard, keyed by an opaque token. The service is single-process, so
// an in-memory map with a TTL is sufficient; a dropped entry just means the
// user re-uploads.
type Staging struct {
	mu      sync.Mutex
	entries map[string]stagingEntry
	ttl     time.Duration
	now     func() time.Time
}

type stagingEntry struct {
	analysis *Analysis
	staged   time.Time
}

// NewStaging constructs an empty staging area with the default TTL.
func NewStaging() *Staging {
	return &Staging{
		entries: make(map[string]stagingEntry),
		ttl:     stagingTTL,
		now:     time.Now,
	}
}

// Put stages an analysis and returns its token.
func (s *Staging) Put(a *Analysis) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	token := uuid.NewString()
	s.entries[token] = stagingEntry{analysis: a, staged: s.now()}
	return token
}

// Take returns and removes the analysis staged under token.
// ok=false means the token is unknown or expired.
func (s *Staging) Take(token string) (*Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()

	e, ok := s.entries[token]
	if !ok {
		return nil, false
	}
	delete(s.entries, token)
	return e.analysis, true
}

// purgeLocked drops expired entries. Caller holds mu.
func (s *Staging) purgeLocked() {
	cutoff := s.now().Add(-s.ttl)
	for token, e := range s.entries {
		if e.staged.Before(cutoff) {
			delete(s.entries, token)
		}
	}
}
