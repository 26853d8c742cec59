package ws

import (
	"encoding/json"
	"pairchat/domain"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  chat.Command
	}{
		{
			name:  "Join with pagination",
			frame: `{"event":"joinPrivateChat","data":{"targetUserId":"bob","before":"m1"}}`,
			want:  chat.JoinPrivateChat{TargetUserID: "bob", Before: "m1"},
		},
		{
			name:  "Send defaults to text",
			frame: `{"event":"sendMessage","data":{"targetUserId":"bob","content":"hi"}}`,
			want:  chat.SendMessage{TargetUserID: "bob", Content: "hi", Type: domain.TextMessage},
		},
		{
			name: "Send with file",
			frame: `{"event":"sendMessage","data":{"targetUserId":"bob","messageType":"file",
				"fileData":{"filename":"f1.pdf","originalName":"cv.pdf","size":12,"mimetype":"application/pdf","url":"/uploads/f1.pdf"}}}`,
			want: chat.SendMessage{TargetUserID: "bob", Type: domain.FileMessage, File: &domain.FileDescriptor{
				Filename: "f1.pdf", OriginalName: "cv.pdf", Size: 12, MimeType: "application/pdf", URL: "/uploads/f1.pdf",
			}},
		},
		{
			name:  "Mark as read",
			frame: `{"event":"markAsRead","data":{"messageId":"m1"}}`,
			want:  chat.MarkAsRead{MessageID: "m1"},
		},
		{
			name:  "Edit",
			frame: `{"event":"editMessage","data":{"messageId":"m1","newContent":"fixed"}}`,
			want:  chat.EditMessage{MessageID: "m1", NewContent: "fixed"},
		},
		{
			name:  "Stop typing",
			frame: `{"event":"stopTyping","data":{"targetUserId":"bob"}}`,
			want:  chat.StopTyping{TargetUserID: "bob"},
		},
		{
			name:  "Get users without data",
			frame: `{"event":"getUsers"}`,
			want:  chat.GetUsers{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			cmd, err := DecodeCommand([]byte(tt.frame))
			req.NoError(err)
			req.Equal(tt.want, cmd)
		})
	}
}

func TestDecodeCommand_Rejections(t *testing.T) {
	req := require.New(t)

	_, err := DecodeCommand([]byte(`{"event":"joinRoom","data":{}}`))
	req.ErrorIs(err, errors.ErrUnknownEvent)
	req.Equal(errors.KindValidation, errors.KindOf(err))

	_, err = DecodeCommand([]byte(`not json`))
	req.ErrorIs(err, errors.ErrValidation)

	_, err = DecodeCommand([]byte(`{"event":"markAsRead","data":{"messageId":42}}`))
	req.ErrorIs(err, errors.ErrValidation)
}

func TestEncodeEvent_All_Users_Is_An_Array(t *testing.T) {
	req := require.New(t)
	lastSeen := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	frame, err := EncodeEvent(event.NewAllUsers([]domain.PresenceEntry{
		{Identity: domain.Identity{ID: "alice", Username: "Alice"}, Online: true, LastSeen: lastSeen},
	}))
	req.NoError(err)

	req.JSONEq(`{"event":"allUsers","data":[
		{"id":"alice","username":"Alice","isOnline":true,"lastSeen":"2024-03-01T10:00:00Z"}
	]}`, string(frame))

	empty, err := EncodeEvent(event.AllUsers{})
	req.NoError(err)
	req.JSONEq(`{"event":"allUsers","data":[]}`, string(empty))
}

func TestEncodeEvent_Message_Is_Flattened(t *testing.T) {
	req := require.New(t)
	createdAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	message := domain.PrivateMessage{
		ID: "m1", Sender: "alice", Receiver: "bob", Content: "hi",
		Type: domain.TextMessage, CreatedAt: createdAt,
	}

	frame, err := EncodeEvent(event.MessageDelivered{Message: event.NewMessage(message,
		domain.Identity{ID: "bob", Username: "Bob"}, domain.Identity{ID: "alice", Username: "Alice"})})
	req.NoError(err)

	var envelope struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	req.NoError(json.Unmarshal(frame, &envelope))
	req.Equal("message", envelope.Event)
	req.Equal("m1", envelope.Data["id"])
	req.Equal("alice:bob", envelope.Data["room"])
	req.Equal(map[string]any{"id": "alice", "username": "Alice"}, envelope.Data["sender"])
	req.Equal(map[string]any{"id": "bob", "username": "Bob"}, envelope.Data["receiver"])
	req.Equal(false, envelope.Data["edited"])
	req.NotContains(envelope.Data, "editedAt")
}
