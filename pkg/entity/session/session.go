// Package session holds the persisted shapes of conversation sessions and
// their migration chain.
package session

import (
	"time"

	"github.com/aretw0/strata/pkg/version"
)

var (
	// V010 is the legacy shape: "name", optional creation time, history keyed
	// by ad hoc persona references.
	V010 = version.MustParse("0.1.0")
	// V020 renames "name" to "title", always carries "created_at", and keys
	// history by canonical persona ids.
	V020 = version.MustParse("0.2.0")

	// Current is the version every session is saved with.
	Current = V020
)

// UserKey is the history bucket holding the human side of a conversation.
// It is not a persona and is never rewritten.
const UserKey = "user"

// Message is one entry of a conversation history.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at,omitzero"`
}

// Session is the domain record used by the rest of the application.
type Session struct {
	ID            string
	Title         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ActivePersona string
	History       map[string][]Message
}

// SnapshotV010 is a session as written by 0.1.0.
type SnapshotV010 struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	CreatedAt     *time.Time           `json:"created_at,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ActivePersona string               `json:"active_persona,omitempty"`
	History       map[string][]Message `json:"history,omitempty"`
}

// SnapshotV020 is a session as written by 0.2.0.
type SnapshotV020 struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ActivePersona string               `json:"active_persona,omitempty"`
	History       map[string][]Message `json:"history,omitempty"`
}

func intoDomain(s SnapshotV020) (Session, error) {
	return Session(s), nil
}

func fromDomain(s Session) SnapshotV020 {
	return SnapshotV020(s)
}
