// Package runtime drives the messaging protocol: sessions, presence, room subscriptions and fan-out.
// It composes the domain rules with the repositories without holding any transport concern.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"pairchat/auth"
	"pairchat/contract"
	"pairchat/domain"
	"pairchat/domain/chat"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/observability"
	"pairchat/repositories"
	"sync"
	"time"

	"github.com/samber/lo"
)

type CoordinatorConfig struct {
	HistoryLimit int
	EditPolicy   domain.EditPolicy
}

// Coordinator executes the commands of every session.
// Room scoped commands are expected to reach Handle through the dispatcher, which
// serializes persistence and fan-out of one room.
type Coordinator struct {
	log        *slog.Logger
	registry   contract.IRegistry
	presence   contract.IPresence
	dispatcher contract.IDispatcher
	messages   repositories.IMessageRepository
	users      repositories.IUserRepository
	validator  auth.PayloadValidator
	censor     contract.ICensor
	metrics    *observability.Metrics
	fanout     *Fanout
	config     CoordinatorConfig
	now        func() time.Time

	// presenceMu orders every presence transition together with its mirror write and broadcast.
	presenceMu sync.Mutex
}

func NewCoordinator(
	log *slog.Logger,
	registry contract.IRegistry,
	presence contract.IPresence,
	dispatcher contract.IDispatcher,
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	validator auth.PayloadValidator,
	config CoordinatorConfig,
) *Coordinator {
	if config.EditPolicy == "" {
		config.EditPolicy = domain.EditBySender
	}
	return &Coordinator{
		log:        log,
		registry:   registry,
		presence:   presence,
		dispatcher: dispatcher,
		messages:   messages,
		users:      users,
		validator:  validator,
		fanout:     NewFanout(registry, nil, log),
		config:     config,
		now:        time.Now,
	}
}

// WithCensor masks forbidden words of text content before it is stored.
func (c *Coordinator) WithCensor(censor contract.ICensor) *Coordinator {
	c.censor = censor
	return c
}

func (c *Coordinator) WithMetrics(metrics *observability.Metrics) *Coordinator {
	c.metrics = metrics
	c.fanout.metrics = metrics
	return c
}

// Seed loads the user directory into presence. Users left online by a previous
// process are mirrored back offline since none of their connections survived.
func (c *Coordinator) Seed(ctx context.Context) error {
	users, err := c.users.ListAll(ctx)
	if err != nil {
		return err
	}
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	c.presence.Seed(users)
	for _, user := range users {
		if !user.IsOnline {
			continue
		}
		if err := c.users.SetPresence(ctx, user.ID, false, user.LastSeen); err != nil {
			c.log.Warn("Failed to reset stale presence", "user_id", user.ID, "error", err)
		}
	}
	c.log.Info("Presence seeded", "users", len(users))
	return nil
}

// Connect activates an authenticated session and announces the new presence to everyone.
func (c *Coordinator) Connect(ctx context.Context, s *Session) error {
	if !s.activate() {
		return fmt.Errorf("%w: session %s is %s", errors.ErrSessionClosed, s.ID, s.State())
	}
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	c.registry.Register(s.ID, s)
	entry := c.presence.RecordConnect(s.Identity, s.ID)
	c.mirror(ctx, s.Identity.ID, entry)
	c.metrics.SessionOpened()
	c.log.Info("Session connected", "user_id", s.Identity.ID, "connection_id", s.ID)
	c.broadcastPresence(ctx)
	return nil
}

// Disconnect closes the session, drops its subscriptions and announces the presence change.
// Cleanup failures are logged and never prevent the transition.
func (c *Coordinator) Disconnect(ctx context.Context, s *Session) {
	wasActive := s.State() == Active
	if !s.close() {
		return
	}
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	rooms := c.registry.Unregister(s.ID)
	s.forget()
	if !wasActive {
		return
	}
	c.metrics.SessionClosed()
	if entry, changed := c.presence.RecordDisconnect(s.Identity, s.ID); changed && !entry.Online {
		c.mirror(ctx, s.Identity.ID, entry)
	}
	c.log.Info("Session disconnected", "user_id", s.Identity.ID, "connection_id", s.ID, "rooms", len(rooms))
	c.broadcastPresence(ctx)
}

// Submit queues cmd on the lane owning its room and returns without waiting for the outcome.
// A panicking command is reported to its requester and leaves the lane running.
func (c *Coordinator) Submit(ctx context.Context, s *Session, cmd chat.Command) error {
	return c.dispatcher.Dispatch(ctx, cmd.LaneKey(s.Identity.ID), func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("Command panicked", "command", cmd.Name(), "user_id", s.Identity.ID, "panic", r)
				c.metrics.CommandHandled(cmd.Name(), string(errors.KindInternal), 0)
				c.deliver(ctx, s, event.Error{Code: string(errors.KindInternal), Message: "command could not be completed"})
			}
		}()
		c.Execute(ctx, s, cmd)
	})
}

// Sessions counts the registered connections.
func (c *Coordinator) Sessions() int {
	return c.registry.Count()
}

// Execute handles cmd and reports a failure to the requesting session only.
func (c *Coordinator) Execute(ctx context.Context, s *Session, cmd chat.Command) {
	start := c.now()
	err := c.Handle(ctx, s, cmd)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrSessionClosed):
		outcome = "closed"
	default:
		kind := errors.KindOf(err)
		outcome = string(kind)
		if kind == errors.KindRepository || kind == errors.KindInternal {
			c.log.Error("Command failed", "command", cmd.Name(), "user_id", s.Identity.ID, "error", err)
		} else {
			c.log.Debug("Command rejected", "command", cmd.Name(), "user_id", s.Identity.ID, "error", err)
		}
		c.deliver(ctx, s, event.Error{Code: string(kind), Message: err.Error()})
	}
	c.metrics.CommandHandled(cmd.Name(), outcome, c.now().Sub(start))
}

// Handle runs one command to completion. Commands of a closed session are ignored.
func (c *Coordinator) Handle(ctx context.Context, s *Session, cmd chat.Command) error {
	if !s.IsActive() {
		return errors.ErrSessionClosed
	}
	switch cmd := cmd.(type) {
	case chat.JoinPrivateChat:
		return c.join(ctx, s, cmd)
	case chat.LeavePrivateChat:
		return c.leave(s, cmd)
	case chat.LoadMoreMessages:
		return c.loadMore(ctx, s, cmd)
	case chat.SendMessage:
		return c.send(ctx, s, cmd)
	case chat.MarkAsRead:
		return c.markAsRead(ctx, s, cmd)
	case chat.EditMessage:
		return c.edit(ctx, s, cmd)
	case chat.Typing:
		c.typing(ctx, s, cmd.TargetUserID, func(room domain.RoomKey) event.Event {
			return event.Typing{UserID: s.Identity.ID, Username: s.Identity.Username, Room: room}
		})
		return nil
	case chat.StopTyping:
		c.typing(ctx, s, cmd.TargetUserID, func(room domain.RoomKey) event.Event {
			return event.StopTyping{UserID: s.Identity.ID, Username: s.Identity.Username, Room: room}
		})
		return nil
	case chat.GetUsers:
		c.deliver(ctx, s, event.NewAllUsers(c.presence.Snapshot()))
		return nil
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnknownEvent, cmd.Name())
	}
}

func (c *Coordinator) join(ctx context.Context, s *Session, cmd chat.JoinPrivateChat) error {
	room, target, err := c.pair(ctx, s, cmd.TargetUserID)
	if err != nil {
		return err
	}
	c.subscribe(s, room)
	return c.history(ctx, s, room, target, cmd.Before)
}

func (c *Coordinator) leave(s *Session, cmd chat.LeavePrivateChat) error {
	room, err := domain.Canonical(s.Identity.ID, cmd.TargetUserID)
	if err != nil {
		return err
	}
	s.leave(room)
	c.registry.Unsubscribe(room, s.ID)
	return nil
}

func (c *Coordinator) loadMore(ctx context.Context, s *Session, cmd chat.LoadMoreMessages) error {
	room, target, err := c.pair(ctx, s, cmd.TargetUserID)
	if err != nil {
		return err
	}
	return c.history(ctx, s, room, target, cmd.Before)
}

// history delivers one page of the conversation, oldest to newest, to the requester only.
func (c *Coordinator) history(ctx context.Context, s *Session, room domain.RoomKey, target domain.Identity, before string) error {
	messages, hasMore, err := c.messages.FindByPair(ctx, s.Identity.ID, target.ID, c.config.HistoryLimit, before)
	if err != nil {
		return err
	}
	c.deliver(ctx, s, event.RecentMessages{
		Room: room,
		Messages: lo.Map(messages, func(m domain.PrivateMessage, _ int) event.Message {
			return event.NewMessage(m, s.Identity, target)
		}),
		IsPrivate:    true,
		TargetUserID: target.ID,
		HasMore:      hasMore,
		Before:       before,
	})
	return nil
}

func (c *Coordinator) send(ctx context.Context, s *Session, cmd chat.SendMessage) error {
	if cmd.Type == "" {
		cmd.Type = domain.TextMessage
	}
	if _, err := domain.Canonical(s.Identity.ID, cmd.TargetUserID); err != nil {
		return err
	}
	file, err := c.validator.ValidateMessage(cmd.Type, cmd.Content, cmd.File)
	if err != nil {
		return err
	}
	room, target, err := c.pair(ctx, s, cmd.TargetUserID)
	if err != nil {
		return err
	}

	message, err := c.messages.Insert(ctx, domain.PrivateMessage{
		Sender:   s.Identity.ID,
		Receiver: target.ID,
		Content:  c.moderate(cmd.Content, s.Identity.ID),
		Type:     cmd.Type,
		File:     file,
	})
	if err != nil {
		return err
	}
	c.metrics.MessagePersisted(string(message.Type))

	c.subscribe(s, room)
	c.fanout.Deliver(ctx, room, event.MessageDelivered{Message: event.NewMessage(message, s.Identity, target)})
	return nil
}

func (c *Coordinator) markAsRead(ctx context.Context, s *Session, cmd chat.MarkAsRead) error {
	if cmd.MessageID == "" {
		return fmt.Errorf("%w: message id is missing", errors.ErrValidation)
	}
	reader := s.Identity.ID
	message, changed, err := c.messages.UpdateByID(ctx, cmd.MessageID, func(m *domain.PrivateMessage) (bool, error) {
		if !m.IsParticipant(reader) {
			return false, fmt.Errorf("%w: not a participant of message %s", errors.ErrForbidden, m.ID)
		}
		return m.MarkReadBy(reader, c.now().UTC()), nil
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.publish(ctx, s, message, func(m event.Message) event.Event { return event.MessageRead{Message: m} })
}

func (c *Coordinator) edit(ctx context.Context, s *Session, cmd chat.EditMessage) error {
	if cmd.MessageID == "" {
		return fmt.Errorf("%w: message id is missing", errors.ErrValidation)
	}
	if err := c.validator.ValidateContent(cmd.NewContent); err != nil {
		return err
	}
	editor := s.Identity.ID
	content := c.moderate(cmd.NewContent, editor)
	message, _, err := c.messages.UpdateByID(ctx, cmd.MessageID, func(m *domain.PrivateMessage) (bool, error) {
		if err := c.authorizeEdit(*m, editor); err != nil {
			return false, err
		}
		m.Edit(content, c.now().UTC())
		return true, nil
	})
	if err != nil {
		return err
	}
	return c.publish(ctx, s, message, func(m event.Message) event.Event { return event.MessageEdited{Message: m} })
}

func (c *Coordinator) authorizeEdit(m domain.PrivateMessage, editor domain.UserID) error {
	switch {
	case !m.IsParticipant(editor):
		return fmt.Errorf("%w: not a participant of message %s", errors.ErrForbidden, m.ID)
	case c.config.EditPolicy == domain.EditBySender && m.Sender != editor:
		return fmt.Errorf("%w: only the sender can edit message %s", errors.ErrForbidden, m.ID)
	case m.Type != domain.TextMessage:
		return fmt.Errorf("%w: only text messages can be edited", errors.ErrValidation)
	}
	return nil
}

// publish fans an updated message out to its room, denormalized with both display names.
func (c *Coordinator) publish(ctx context.Context, s *Session, m domain.PrivateMessage, wrap func(event.Message) event.Event) error {
	peerID, _ := m.Room().Peer(s.Identity.ID)
	peer, err := c.identityOf(ctx, peerID)
	if err != nil {
		c.log.Warn("Peer identity unavailable", "user_id", peerID, "message_id", m.ID, "error", err)
		peer = domain.Identity{ID: peerID}
	}
	c.fanout.Deliver(ctx, m.Room(), wrap(event.NewMessage(m, s.Identity, peer)))
	return nil
}

// typing re-broadcasts the signal on every call and keeps no state. Invalid targets are ignored.
func (c *Coordinator) typing(ctx context.Context, s *Session, target domain.UserID, signal func(domain.RoomKey) event.Event) {
	room, err := domain.Canonical(s.Identity.ID, target)
	if err != nil {
		return
	}
	c.fanout.Deliver(ctx, room, signal(room), s.ID)
}

// pair validates the conversation between the requester and target and resolves the target identity.
func (c *Coordinator) pair(ctx context.Context, s *Session, targetID domain.UserID) (domain.RoomKey, domain.Identity, error) {
	room, err := domain.Canonical(s.Identity.ID, targetID)
	if err != nil {
		return "", domain.Identity{}, err
	}
	target, err := c.identityOf(ctx, targetID)
	if err != nil {
		return "", domain.Identity{}, err
	}
	return room, target, nil
}

// identityOf prefers the in-memory presence and falls back to the directory for
// users registered after startup.
func (c *Coordinator) identityOf(ctx context.Context, id domain.UserID) (domain.Identity, error) {
	if entry, ok := c.presence.Get(id); ok {
		return entry.Identity, nil
	}
	user, err := c.users.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.Identity{}, fmt.Errorf("%w: user %s", errors.ErrNotFound, id)
		}
		return domain.Identity{}, err
	}
	return user.Identity(), nil
}

func (c *Coordinator) subscribe(s *Session, room domain.RoomKey) {
	if s.HasJoined(room) {
		return
	}
	s.join(room)
	c.registry.Subscribe(room, s.ID)
}

func (c *Coordinator) moderate(content string, author domain.UserID) string {
	if c.censor == nil || content == "" {
		return content
	}
	censored, words := c.censor.Censor(content)
	if len(words) > 0 {
		c.log.Info("Message censored", "user_id", author, "words", len(words))
	}
	return censored
}

func (c *Coordinator) mirror(ctx context.Context, id domain.UserID, entry domain.PresenceEntry) {
	if err := c.users.SetPresence(ctx, id, entry.Online, entry.LastSeen); err != nil {
		c.log.Warn("Failed to mirror presence", "user_id", id, "error", err)
	}
}

func (c *Coordinator) broadcastPresence(ctx context.Context) {
	c.metrics.SetOnlineUsers(c.presence.Online())
	c.fanout.Broadcast(ctx, event.NewAllUsers(c.presence.Snapshot()))
}

func (c *Coordinator) deliver(ctx context.Context, s *Session, e event.Event) {
	if err := s.Consume(ctx, e); err != nil && !errors.Is(err, errors.ErrSessionClosed) {
		c.metrics.FanoutDropped()
		c.log.Warn("Event dropped", "event", e.Name(), "connection_id", s.ID, "error", err)
	}
}
