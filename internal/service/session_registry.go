package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"medaudit/internal/domain"
)

// SessionRegistry defines the contract for looking up audit sessions by ID.
type SessionRegistry interface {
	// Get returns an existing session or domain.ErrSessionNotFound.
	Get(id string) (AuditSession, error)
	// GetOrCreate returns the session for id, creating it when id is empty or
	// unknown. created reports whether a new session was made.
	GetOrCreate(id string) (session AuditSession, created bool)
	// Sweep evicts sessions idle for longer than ttl and returns how many were removed.
	Sweep(ttl time.Duration) int
	Len() int
}

type sessionRegistry struct {
	pipeline Pipeline
	cfg      SessionConfig
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*auditSession
}

// NewSessionRegistry creates a new in-memory SessionRegistry.
func NewSessionRegistry(pipeline Pipeline, cfg SessionConfig) SessionRegistry {
	return &sessionRegistry{
		pipeline: pipeline,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*auditSession),
	}
}

func (r *sessionRegistry) Get(id string) (AuditSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (r *sessionRegistry) GetOrCreate(id string) (AuditSession, bool) {
	if id != "" {
		if s, err := r.Get(id); err == nil {
			return s, false
		}
		// Client-chosen IDs must parse as UUIDs; anything else gets a fresh one.
		if _, err := uuid.Parse(id); err != nil {
			id = ""
		}
	}
	if id == "" {
		id = uuid.New().String()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s, false
	}
	s := newAuditSession(id, r.pipeline, r.cfg, r.now)
	r.sessions[id] = s
	return s, true
}

func (r *sessionRegistry) Sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		last, evictable := s.idleSince()
		if evictable && last.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *sessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RunSweeper evicts idle sessions every interval until ctx is done.
func RunSweeper(ctx context.Context, reg SessionRegistry, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Sweep(ttl); n > 0 {
				log.Printf("service.RunSweeper: evicted %d idle sessions", n)
			}
		}
	}
}
