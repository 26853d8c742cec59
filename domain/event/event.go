// Package event defines what the server pushes to connected sessions.
// Payloads carry json tags because they are written to the wire as is.
package event

import (
	"pairchat/domain"
	"time"

	"github.com/samber/lo"
)

type Event interface {
	Name() string
}

const (
	RecentMessagesName = "recentMessages"
	MessageName        = "message"
	MessageReadName    = "messageRead"
	MessageEditedName  = "messageEdited"
	TypingName         = "typing"
	StopTypingName     = "stopTyping"
	AllUsersName       = "allUsers"
	ErrorName          = "error"
)

type UserRef struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
}

type FileData struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	URL          string `json:"url"`
}

type ReadReceipt struct {
	UserID domain.UserID `json:"user"`
	ReadAt time.Time     `json:"readAt"`
}

// Message is a persisted message denormalized with both display names.
type Message struct {
	ID          string             `json:"id"`
	Room        domain.RoomKey     `json:"room"`
	Sender      UserRef            `json:"sender"`
	Receiver    UserRef            `json:"receiver"`
	Content     string             `json:"content,omitempty"`
	MessageType domain.MessageType `json:"messageType"`
	FileData    *FileData          `json:"fileData,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	ReadBy      []ReadReceipt      `json:"readBy"`
	Edited      bool               `json:"edited"`
	EditedAt    *time.Time         `json:"editedAt,omitempty"`
}

// NewMessage denormalizes m. Identities are matched by id so their order does not matter.
func NewMessage(m domain.PrivateMessage, a, b domain.Identity) Message {
	sender, receiver := a, b
	if a.ID != m.Sender {
		sender, receiver = b, a
	}
	return Message{
		ID:          m.ID,
		Room:        m.Room(),
		Sender:      toUserRef(sender, m.Sender),
		Receiver:    toUserRef(receiver, m.Receiver),
		Content:     m.Content,
		MessageType: m.Type,
		FileData:    toFileData(m.File),
		CreatedAt:   m.CreatedAt,
		ReadBy: lo.Map(m.ReadBy, func(r domain.ReadReceipt, _ int) ReadReceipt {
			return ReadReceipt{UserID: r.Reader, ReadAt: r.ReadAt}
		}),
		Edited:   m.Edited,
		EditedAt: m.EditedAt,
	}
}

func toUserRef(identity domain.Identity, id domain.UserID) UserRef {
	if identity.ID != id || identity.Username == "" {
		return UserRef{ID: id, Username: string(id)}
	}
	return UserRef{ID: identity.ID, Username: identity.Username}
}

func toFileData(f *domain.FileDescriptor) *FileData {
	if f == nil {
		return nil
	}
	return &FileData{
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		MimeType:     f.MimeType,
		URL:          f.URL,
	}
}

type RecentMessages struct {
	Room         domain.RoomKey `json:"room"`
	Messages     []Message      `json:"messages"`
	IsPrivate    bool           `json:"isPrivate"`
	TargetUserID domain.UserID  `json:"targetUserId"`
	HasMore      bool           `json:"hasMore"`
	Before       string         `json:"before,omitempty"`
}

type MessageDelivered struct{ Message }

type MessageRead struct{ Message }

type MessageEdited struct{ Message }

type Typing struct {
	UserID   domain.UserID  `json:"userId"`
	Username string         `json:"username"`
	Room     domain.RoomKey `json:"room"`
}

type StopTyping struct {
	UserID   domain.UserID  `json:"userId"`
	Username string         `json:"username"`
	Room     domain.RoomKey `json:"room"`
}

type UserPresence struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username"`
	IsOnline bool          `json:"isOnline"`
	LastSeen *time.Time    `json:"lastSeen"`
}

type AllUsers struct {
	Users []UserPresence
}

func NewAllUsers(entries []domain.PresenceEntry) AllUsers {
	return AllUsers{Users: lo.Map(entries, func(e domain.PresenceEntry, _ int) UserPresence {
		var lastSeen *time.Time
		if !e.LastSeen.IsZero() {
			lastSeen = lo.ToPtr(e.LastSeen)
		}
		return UserPresence{
			ID:       e.Identity.ID,
			Username: e.Identity.Username,
			IsOnline: e.Online,
			LastSeen: lastSeen,
		}
	})}
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (RecentMessages) Name() string   { return RecentMessagesName }
func (MessageDelivered) Name() string { return MessageName }
func (MessageRead) Name() string      { return MessageReadName }
func (MessageEdited) Name() string    { return MessageEditedName }
func (Typing) Name() string           { return TypingName }
func (StopTyping) Name() string       { return StopTypingName }
func (AllUsers) Name() string         { return AllUsersName }
func (Error) Name() string            { return ErrorName }
