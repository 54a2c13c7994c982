// Package transcript persists the bounded rolling conversation history that
// gives the remote model multi-turn context across otherwise stateless
// invocations.
package transcript

import "time"

// Role identifies which party produced a turn. Only the two chat roles the
// generation API understands are ever stored.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxTurns is the transcript cap. When the history grows past this, the
// oldest turns are dropped first.
const MaxTurns = 20

// Turn is one message in the transcript. Timestamp is advisory only; ordering
// is the slice order.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store abstracts transcript persistence so tests can substitute an
// in-memory implementation for the on-disk one.
type Store interface {
	// Load returns the stored transcript, oldest first. A missing backing
	// file is not an error; it yields an empty transcript.
	Load() ([]Turn, error)
	// Save persists the transcript, truncating it to the most recent
	// MaxTurns entries first.
	Save(turns []Turn) error
}

// Tail returns the most recent MaxTurns entries of turns, preserving order.
// Shorter transcripts are returned unchanged.
func Tail(turns []Turn) []Turn {
	if len(turns) <= MaxTurns {
		return turns
	}
	return turns[len(turns)-MaxTurns:]
}
