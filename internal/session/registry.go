package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"curabot/internal/helper"
)

// Registry owns every live session, keyed by session ID
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ratePerMinute int
	burst         int
}

// NewRegistry creates a registry whose sessions may each make ratePerMinute
// requests with the given burst. A zero rate disables throttling.
func NewRegistry(ratePerMinute, burst int) *Registry {
	return &Registry{
		sessions:      make(map[string]*Session),
		ratePerMinute: ratePerMinute,
		burst:         burst,
	}
}

func (r *Registry) newLimiter() *rate.Limiter {
	if r.ratePerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := r.burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.ratePerMinute)), burst)
}

// Create starts a session for a user who just logged in
func (r *Registry) Create(email, firstName string, expiresAt time.Time) (*Session, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return nil, err
	}
	s := newSession(id, email, firstName, expiresAt, r.newLimiter())

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	log.Debug().Str("session", id).Str("email", email).Time("expires_at", expiresAt).Msg("Session created")
	return s, nil
}

// Get returns the live session with id. Expired sessions are removed.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.Expired(time.Now()) {
		r.Delete(id)
		return nil, false
	}
	return s, true
}

// Delete ends a session and discards its report and history
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.Close()
		log.Debug().Str("session", id).Msg("Session deleted")
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep deletes every session that expired before now
func (r *Registry) Sweep(now time.Time) int {
	r.mu.RLock()
	var expired []string
	for id, s := range r.sessions {
		if s.Expired(now) {
			expired = append(expired, id)
		}
	}
	r.mu.RUnlock()

	n := 0
	for _, id := range expired {
		if r.Delete(id) {
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				log.Info().Int("expired", n).Msg("Swept expired sessions")
			}
		}
	}
}
