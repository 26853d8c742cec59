package ws

import (
	"encoding/json"
	"fmt"
	"pairchat/domain"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type fileData struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
	URL          string `json:"url"`
}

type targetPayload struct {
	TargetUserID domain.UserID `json:"targetUserId"`
	Before       string        `json:"before"`
}

type sendPayload struct {
	TargetUserID domain.UserID      `json:"targetUserId"`
	Content      string             `json:"content"`
	FileData     *fileData          `json:"fileData"`
	MessageType  domain.MessageType `json:"messageType"`
}

type messagePayload struct {
	MessageID  string `json:"messageId"`
	NewContent string `json:"newContent"`
}

// DecodeCommand parses one inbound frame.
func DecodeCommand(frame []byte) (chat.Command, error) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed frame: %v", errors.ErrValidation, err)
	}

	switch envelope.Event {
	case chat.JoinPrivateChatName:
		p, err := decodeData[targetPayload](envelope)
		return chat.JoinPrivateChat{TargetUserID: p.TargetUserID, Before: p.Before}, err
	case chat.LeavePrivateChatName:
		p, err := decodeData[targetPayload](envelope)
		return chat.LeavePrivateChat{TargetUserID: p.TargetUserID}, err
	case chat.LoadMoreMessagesName:
		p, err := decodeData[targetPayload](envelope)
		return chat.LoadMoreMessages{TargetUserID: p.TargetUserID, Before: p.Before}, err
	case chat.SendMessageName:
		p, err := decodeData[sendPayload](envelope)
		if err != nil {
			return nil, err
		}
		messageType := p.MessageType
		if messageType == "" {
			messageType = domain.TextMessage
		}
		return chat.SendMessage{
			TargetUserID: p.TargetUserID,
			Content:      p.Content,
			File:         toFileDescriptor(p.FileData),
			Type:         messageType,
		}, nil
	case chat.MarkAsReadName:
		p, err := decodeData[messagePayload](envelope)
		return chat.MarkAsRead{MessageID: p.MessageID}, err
	case chat.EditMessageName:
		p, err := decodeData[messagePayload](envelope)
		return chat.EditMessage{MessageID: p.MessageID, NewContent: p.NewContent}, err
	case chat.TypingName:
		p, err := decodeData[targetPayload](envelope)
		return chat.Typing{TargetUserID: p.TargetUserID}, err
	case chat.StopTypingName:
		p, err := decodeData[targetPayload](envelope)
		return chat.StopTyping{TargetUserID: p.TargetUserID}, err
	case chat.GetUsersName:
		return chat.GetUsers{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEvent, envelope.Event)
	}
}

func decodeData[T any](envelope Envelope) (T, error) {
	var payload T
	if len(envelope.Data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		return payload, fmt.Errorf("%w: malformed %s payload: %v", errors.ErrValidation, envelope.Event, err)
	}
	return payload, nil
}

func toFileDescriptor(f *fileData) *domain.FileDescriptor {
	if f == nil {
		return nil
	}
	return &domain.FileDescriptor{
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		Size:         f.Size,
		MimeType:     f.MimeType,
		URL:          f.URL,
	}
}

// EncodeEvent renders e as an outbound frame. The presence directory is sent as a bare array.
func EncodeEvent(e event.Event) ([]byte, error) {
	var data any = e
	if users, ok := e.(event.AllUsers); ok {
		data = users.Users
		if users.Users == nil {
			data = []event.UserPresence{}
		}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Name(), err)
	}
	return json.Marshal(Envelope{Event: e.Name(), Data: raw})
}
