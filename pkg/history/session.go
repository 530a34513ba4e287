package history

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Session is a named, ordered conversation. Exactly one session per project
// is active at a time; retired sessions are kept until history is cleared.
type Session struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Entries     []Entry   `json:"entries"`
	IsSaved     bool      `json:"is_saved"`
	AutoNamed   bool      `json:"auto_named"`
}

// PlaceholderName is the name a session carries until the naming heuristic
// fires or the caller renames it.
const PlaceholderName = "New Session"

// NewSession creates an empty session with a random identifier.
func NewSession(name string) *Session {
	if name == "" {
		name = PlaceholderName
	}

	id, _ := gonanoid.New()
	now := time.Now()

	return &Session{
		SessionID:   id,
		SessionName: name,
		CreatedAt:   now,
		UpdatedAt:   now,
		Entries:     []Entry{},
		IsSaved:     true,
		AutoNamed:   name != PlaceholderName,
	}
}

// Append adds an entry, advances UpdatedAt and clears the saved flag.
func (s *Session) Append(entry Entry) {
	s.Entries = append(s.Entries, entry)
	s.UpdatedAt = time.Now()
	s.IsSaved = false
}

// FormattedDate returns a short creation date for displays.
func (s *Session) FormattedDate() string {
	return s.CreatedAt.Format("01/02 15:04")
}
