// Package chat defines the inbound commands a session may issue.
package chat

import (
	"pairchat/domain"
)

// Command is routed to a dispatch lane by its LaneKey.
// Commands sharing a key are executed in issue order.
type Command interface {
	Name() string
	LaneKey(requester domain.UserID) string
}

const (
	JoinPrivateChatName  = "joinPrivateChat"
	LeavePrivateChatName = "leavePrivateChat"
	LoadMoreMessagesName = "loadMoreMessages"
	SendMessageName      = "sendMessage"
	MarkAsReadName       = "markAsRead"
	EditMessageName      = "editMessage"
	TypingName           = "typing"
	StopTypingName       = "stopTyping"
	GetUsersName         = "getUsers"
)

type JoinPrivateChat struct {
	TargetUserID domain.UserID
	Before       string
}

type LeavePrivateChat struct {
	TargetUserID domain.UserID
}

type LoadMoreMessages struct {
	TargetUserID domain.UserID
	Before       string
}

type SendMessage struct {
	TargetUserID domain.UserID
	Content      string
	File         *domain.FileDescriptor
	Type         domain.MessageType
}

type MarkAsRead struct {
	MessageID string
}

type EditMessage struct {
	MessageID  string
	NewContent string
}

type Typing struct {
	TargetUserID domain.UserID
}

type StopTyping struct {
	TargetUserID domain.UserID
}

type GetUsers struct{}

func (JoinPrivateChat) Name() string  { return JoinPrivateChatName }
func (LeavePrivateChat) Name() string { return LeavePrivateChatName }
func (LoadMoreMessages) Name() string { return LoadMoreMessagesName }
func (SendMessage) Name() string      { return SendMessageName }
func (MarkAsRead) Name() string       { return MarkAsReadName }
func (EditMessage) Name() string      { return EditMessageName }
func (Typing) Name() string           { return TypingName }
func (StopTyping) Name() string       { return StopTypingName }
func (GetUsers) Name() string         { return GetUsersName }

func (c JoinPrivateChat) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

func (c LeavePrivateChat) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

func (c LoadMoreMessages) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

func (c SendMessage) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

// Read receipts and edits only know the message, so they are serialized per message.
func (c MarkAsRead) LaneKey(domain.UserID) string { return "msg:" + c.MessageID }

func (c EditMessage) LaneKey(domain.UserID) string { return "msg:" + c.MessageID }

func (c Typing) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

func (c StopTyping) LaneKey(requester domain.UserID) string {
	return roomLane(requester, c.TargetUserID)
}

func (GetUsers) LaneKey(requester domain.UserID) string { return "user:" + string(requester) }

// roomLane falls back to the requester when the pair is invalid; the coordinator rejects it anyway.
func roomLane(requester, target domain.UserID) string {
	room, err := domain.Canonical(requester, target)
	if err != nil {
		return "user:" + string(requester)
	}
	return "room:" + string(room)
}
