// Package domain contains core concepts of the chat system.
// This file defines identities, users and presence entries.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type UserID string

// ConnectionID is unique per connection, never per user.
type ConnectionID string

// Identity is the authenticated principal driving a connection.
type Identity struct {
	ID       UserID
	Username string
}

// User is the directory record. IsOnline and LastSeen mirror presence transitions.
type User struct {
	ID        UserID
	Username  string
	IsOnline  bool
	LastSeen  time.Time
	CreatedAt time.Time
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}

// PresenceEntry is the live view of one identity. ActiveConnectionID is empty when offline.
type PresenceEntry struct {
	Identity           Identity
	Online             bool
	LastSeen           time.Time
	ActiveConnectionID ConnectionID
}

// Credential is what a verified token resolves to.
type Credential struct {
	UserID    UserID
	ExpiresAt time.Time
}

type EditPolicy string

const (
	// EditBySender only lets the original sender edit a message.
	EditBySender EditPolicy = "sender"
	// EditByParticipants lets either participant of the conversation edit.
	EditByParticipants EditPolicy = "participants"
)
