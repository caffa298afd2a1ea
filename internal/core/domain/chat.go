package domain

import "time"

// ChatSession binds a conversation to exactly one ready document.
type ChatSession struct {
	// ID is the unique identifier for the session.
	ID string

	// DocumentID is the document the session answers questions about.
	DocumentID string

	// Active is false once the session has been deactivated.
	// Inactive sessions are invisible to every read path.
	Active bool

	// StartedAt is when the session was created.
	StartedAt time.Time

	// LastInteractedAt is when the last turn was recorded.
	LastInteractedAt time.Time

	// Turns is populated by history reads, in chronological order.
	Turns []Turn
}

// Turn is one completed exchange within a chat session.
type Turn struct {
	ID        string
	SessionID string
	Query     string
	Answer    string
	CreatedAt time.Time
}
