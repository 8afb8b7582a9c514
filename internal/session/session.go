package session

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"curabot/internal/chromemdb"
	"curabot/internal/models"
)

// Turn is one answered question. Turns are never edited once appended.
type Turn struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Provider string    `json:"provider,omitempty"`
	AskedAt  time.Time `json:"asked_at"`
}

// Session is the state of one logged-in user. Nothing in it outlives the
// login token.
type Session struct {
	ID        string
	Email     string
	FirstName string
	ExpiresAt time.Time

	// held for a whole question cycle so turns land in request order
	interaction sync.Mutex
	limiter     *rate.Limiter

	mu         sync.Mutex
	mode       models.Mode
	report     *chromemdb.Index
	reportName string
	history    map[models.Mode][]Turn
}

func newSession(id, email, firstName string, expiresAt time.Time, limiter *rate.Limiter) *Session {
	return &Session{
		ID:        id,
		Email:     email,
		FirstName: firstName,
		ExpiresAt: expiresAt,
		limiter:   limiter,
		mode:      models.ModeGeneral,
		history:   make(map[models.Mode][]Turn),
	}
}

// BeginTurn blocks until no other interaction is running on the session and
// returns the function that ends this one.
func (s *Session) BeginTurn() func() {
	s.interaction.Lock()
	return s.interaction.Unlock
}

// Allow reports whether the session may start another request now
func (s *Session) Allow() bool {
	return s.limiter.Allow()
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

func (s *Session) Mode() models.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) SetMode(m models.Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// Report returns the index of the current report and its file name
func (s *Session) Report() (*chromemdb.Index, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report, s.reportName
}

// SetReport replaces the current report. The previous index is discarded.
func (s *Session) SetReport(idx *chromemdb.Index, name string) {
	s.mu.Lock()
	old := s.report
	s.report, s.reportName = idx, name
	s.mu.Unlock()

	if old != nil && old != idx {
		if err := old.Close(); err != nil {
			log.Warn().Str("session", s.ID).Err(err).Msg("Failed to discard previous report index")
		}
	}
}

// Append adds a turn to the end of the transcript for mode
func (s *Session) Append(mode models.Mode, turn Turn) {
	if turn.AskedAt.IsZero() {
		turn.AskedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[mode] = append(s.history[mode], turn)
}

// History returns a copy of the transcript for mode in the order turns were appended
func (s *Session) History(mode models.Mode) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn{}, s.history[mode]...)
}

// Close drops the report index and the transcripts
func (s *Session) Close() {
	s.SetReport(nil, "")
	s.mu.Lock()
	s.history = make(map[models.Mode][]Turn)
	s.mu.Unlock()
}
