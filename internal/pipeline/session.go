package pipeline

import (
	"context"
	"sync"

	"github.com/ppiankov/clausescan/internal/cache"
)

// Session keeps the latest analysis of an interactive upload and reuses it
// until a different document arrives
type Session struct {
	analyzer Analyzer

	mu     sync.Mutex
	key    sessionKey
	result *Result
}

// sessionKey identifies an upload by content and name; the name feeds the
// report and the highlighted file name
type sessionKey struct {
	identity string
	name     string
}

// NewSession creates an empty session around an analyzer
func NewSession(a Analyzer) *Session {
	return &Session{analyzer: a}
}

// Process returns the cached result when the upload is unchanged, otherwise
// discards it and analyzes the upload. The bool reports a cache hit.
func (s *Session) Process(ctx context.Context, up Upload) (*Result, bool, error) {
	key := sessionKey{identity: cache.Identity(up.Data), name: up.Name}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil && s.key == key {
		return s.result, true, nil
	}

	s.key, s.result = sessionKey{}, nil

	res, err := s.analyzer.Analyze(ctx, up)
	if err != nil {
		return nil, false, err
	}

	s.key, s.result = key, res
	return res, false, nil
}

// Invalidate drops the cached result
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key, s.result = sessionKey{}, nil
}

// Current returns the cached result, or nil
func (s *Session) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
