package domain

import (
	"fmt"
	"pairchat/errors"
	"strings"
)

// RoomKey identifies the conversation of one unordered pair of users.
type RoomKey string

const roomSeparator = ":"

// Canonical maps an unordered pair of users onto a single room key.
// Identifiers must be non-empty and free of the separator so that a key denotes exactly one pair.
func Canonical(a, b UserID) (RoomKey, error) {
	if a == "" || b == "" {
		return "", errors.ErrMissingTarget
	}
	if strings.Contains(string(a), roomSeparator) || strings.Contains(string(b), roomSeparator) {
		return "", fmt.Errorf("%w: user id contains %q", errors.ErrValidation, roomSeparator)
	}
	if a == b {
		return "", errors.ErrSelfConversation
	}
	if b < a {
		a, b = b, a
	}
	return RoomKey(string(a) + roomSeparator + string(b)), nil
}

// Participants splits a room key back into its two users.
func (r RoomKey) Participants() (UserID, UserID, bool) {
	a, b, ok := strings.Cut(string(r), roomSeparator)
	if !ok || a == "" || b == "" {
		return "", "", false
	}
	return UserID(a), UserID(b), true
}

// Peer returns the other participant of the room.
func (r RoomKey) Peer(self UserID) (UserID, bool) {
	a, b, ok := r.Participants()
	switch {
	case !ok:
		return "", false
	case a == self:
		return b, true
	case b == self:
		return a, true
	}
	return "", false
}
