package runtime

import (
	"context"
	"fmt"
	"pairchat/domain"
	"pairchat/errors"
	"pairchat/repositories"
	"sort"
	"sync"
	"time"
)

// memoryMessages keeps messages in insertion order.
type memoryMessages struct {
	mu       sync.Mutex
	messages []domain.PrivateMessage
	clock    time.Time
	onInsert func(m domain.PrivateMessage)
}

func newMemoryMessages() *memoryMessages {
	return &memoryMessages{clock: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (r *memoryMessages) Insert(_ context.Context, m domain.PrivateMessage) (domain.PrivateMessage, error) {
	if r.onInsert != nil {
		r.onInsert(m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = r.clock.Add(time.Second)
	m.ID = fmt.Sprintf("m%03d", len(r.messages)+1)
	m.CreatedAt = r.clock
	r.messages = append(r.messages, m)
	return m, nil
}

func (r *memoryMessages) FindByPair(_ context.Context, a, b domain.UserID, limit int, before string) ([]domain.PrivateMessage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, err := domain.Canonical(a, b)
	if err != nil {
		return nil, false, err
	}
	var page []domain.PrivateMessage
	for _, m := range r.messages {
		if m.Room() != room {
			continue
		}
		if before != "" && m.ID >= before {
			break
		}
		page = append(page, m)
	}
	hasMore := limit > 0 && len(page) > limit
	if hasMore {
		page = page[len(page)-limit:]
	}
	return page, hasMore, nil
}

func (r *memoryMessages) FindByID(_ context.Context, id string) (domain.PrivateMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.PrivateMessage{}, errors.ErrNotFound
}

func (r *memoryMessages) UpdateByID(_ context.Context, id string, patch repositories.Patch) (domain.PrivateMessage, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID != id {
			continue
		}
		m.ReadBy = append([]domain.ReadReceipt(nil), m.ReadBy...)
		changed, err := patch(&m)
		if err != nil {
			return domain.PrivateMessage{}, false, err
		}
		if changed {
			r.messages[i] = m
		}
		return m, changed, nil
	}
	return domain.PrivateMessage{}, false, errors.ErrNotFound
}

func (r *memoryMessages) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type memoryUsers struct {
	mu    sync.Mutex
	users map[domain.UserID]domain.User
}

func newMemoryUsers(users ...domain.User) *memoryUsers {
	r := &memoryUsers{users: make(map[domain.UserID]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUsers) CreateUser(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := domain.User{ID: domain.UserID(username), Username: username}
	r.users[user.ID] = user
	return user, nil
}

func (r *memoryUsers) GetUser(_ context.Context, id domain.UserID) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, errors.ErrNotFound
	}
	return user, nil
}

func (r *memoryUsers) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, errors.ErrNotFound
}

func (r *memoryUsers) ListAll(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (r *memoryUsers) SetPresence(_ context.Context, id domain.UserID, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return errors.ErrNotFound
	}
	user.IsOnline = online
	user.LastSeen = lastSeen
	r.users[id] = user
	return nil
}

func (r *memoryUsers) get(id domain.UserID) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}
