// Package domain contains core concepts of the chat system.
// This file defines private messages and the rules mutating them.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"slices"
	"time"
)

type MessageType string

const (
	TextMessage  MessageType = "text"
	FileMessage  MessageType = "file"
	ImageMessage MessageType = "image"
)

// FileDescriptor is produced by the upload collaborator and stored as is.
type FileDescriptor struct {
	Filename     string
	OriginalName string
	Size         int64
	MimeType     string
	URL          string
}

type ReadReceipt struct {
	Reader UserID
	ReadAt time.Time
}

// PrivateMessage is the durable entity exchanged between exactly two users.
type PrivateMessage struct {
	ID        string // assigned by the repository
	Sender    UserID
	Receiver  UserID
	Content   string
	Type      MessageType
	File      *FileDescriptor
	CreatedAt time.Time // assigned by the repository
	ReadBy    []ReadReceipt
	Edited    bool
	EditedAt  *time.Time
}

// Room returns the conversation the message belongs to.
func (m PrivateMessage) Room() RoomKey {
	room, _ := Canonical(m.Sender, m.Receiver)
	return room
}

func (m PrivateMessage) IsParticipant(id UserID) bool {
	return id == m.Sender || id == m.Receiver
}

func (m PrivateMessage) IsReadBy(reader UserID) bool {
	return slices.ContainsFunc(m.ReadBy, func(r ReadReceipt) bool { return r.Reader == reader })
}

// MarkReadBy appends a receipt unless the reader already has one.
// It reports whether the message changed.
func (m *PrivateMessage) MarkReadBy(reader UserID, at time.Time) bool {
	if m.IsReadBy(reader) {
		return false
	}
	m.ReadBy = append(m.ReadBy, ReadReceipt{Reader: reader, ReadAt: at})
	return true
}

// Edit replaces the content and flags the message as edited.
func (m *PrivateMessage) Edit(content string, at time.Time) {
	m.Content = content
	m.Edited = true
	m.EditedAt = &at
}
