//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"pairchat/domain"
	"pairchat/errors"
	"slices"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

const maxUpdateAttempts = 3

// Patch mutates a stored message in place and reports whether it changed.
type Patch func(m *domain.PrivateMessage) (bool, error)

type IMessageRepository interface {
	Insert(ctx context.Context, message domain.PrivateMessage) (domain.PrivateMessage, error)
	FindByPair(ctx context.Context, a, b domain.UserID, limit int, before string) ([]domain.PrivateMessage, bool, error)
	FindByID(ctx context.Context, id string) (domain.PrivateMessage, error)
	UpdateByID(ctx context.Context, id string, patch Patch) (domain.PrivateMessage, bool, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	now func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) *MessageRepository {
	return &MessageRepository{
		db:      db,
		log:     log,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// messageKey is formatted as "msg:{room}:{timestamp_padded}:{id}".
// The 19 digit padding keeps keys of one room sorted chronologically.
func messageKey(room domain.RoomKey, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", room, at.UnixNano(), id))
}

func roomPrefix(room domain.RoomKey) []byte {
	return []byte(fmt.Sprintf("msg:%s:", room))
}

// indexKey points a message id to its message key.
func indexKey(id string) []byte {
	return []byte("msgid:" + id)
}

// Insert assigns the id and the creation time, then persists the message and its index entry.
func (r *MessageRepository) Insert(ctx context.Context, message domain.PrivateMessage) (domain.PrivateMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateMessage{}, err
	}
	room, err := domain.Canonical(message.Sender, message.Receiver)
	if err != nil {
		return domain.PrivateMessage{}, err
	}

	r.mu.Lock()
	now := r.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), r.entropy)
	r.mu.Unlock()
	if err != nil {
		return domain.PrivateMessage{}, fmt.Errorf("%w: %w", errors.ErrRepository, err)
	}

	message.ID = id.String()
	message.CreatedAt = now
	key := messageKey(room, now, message.ID)

	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, encodeMessage(message)); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
	if err != nil {
		return domain.PrivateMessage{}, fmt.Errorf("%w: %w", errors.ErrRepository, err)
	}
	r.log.Debug("Message stored", "message_id", message.ID, "room", room)
	return message, nil
}

// FindByPair returns at most limit messages of the conversation ordered oldest to newest.
// When before is set only messages older than that message are returned.
// The boolean reports whether older messages remain.
func (r *MessageRepository) FindByPair(ctx context.Context, a, b domain.UserID, limit int, before string) ([]domain.PrivateMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	room, err := domain.Canonical(a, b)
	if err != nil {
		return nil, false, err
	}
	prefix := roomPrefix(room)

	var values [][]byte
	err = r.db.View(func(txn *badger.Txn) error {
		var seekKey []byte
		switch before {
		case "":
			// Let's go to the newest position msg:{room}:9999999999999999999
			// Then, we go back and find few messages
			seekKey = append(slices.Clone(prefix), []byte("9999999999999999999")...)
		default:
			item, err := txn.Get(indexKey(before))
			if err != nil {
				return err
			}
			if seekKey, err = item.ValueCopy(nil); err != nil {
				return err
			}
			if !bytes.HasPrefix(seekKey, prefix) {
				return errors.ErrNotFound
			}
		}

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		it.Seek(seekKey)
		if before != "" && it.ValidForPrefix(prefix) && bytes.Equal(it.Item().Key(), seekKey) {
			it.Next()
		}
		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(values) == limit+1 {
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			values = append(values, value)
		}
		return nil
	})
	if err != nil {
		return nil, false, wrap(err)
	}

	hasMore := limit > 0 && len(values) > limit
	if hasMore {
		values = values[:limit]
	}
	messages := make([]domain.PrivateMessage, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		message, err := decodeMessage(values[i])
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", errors.ErrRepository, err)
		}
		messages = append(messages, message)
	}
	return messages, hasMore, nil
}

func (r *MessageRepository) FindByID(ctx context.Context, id string) (domain.PrivateMessage, error) {
	if err := ctx.Err(); err != nil {
		return domain.PrivateMessage{}, err
	}
	var message domain.PrivateMessage
	err := r.db.View(func(txn *badger.Txn) error {
		_, value, err := lookup(txn, id)
		if err != nil {
			return err
		}
		message, err = decodeMessage(value)
		return err
	})
	if err != nil {
		return domain.PrivateMessage{}, wrap(err)
	}
	return message, nil
}

// UpdateByID applies patch inside a read-write transaction.
// Nothing is written when patch reports no change. Conflicting transactions are retried.
func (r *MessageRepository) UpdateByID(ctx context.Context, id string, patch Patch) (domain.PrivateMessage, bool, error) {
	var (
		message domain.PrivateMessage
		changed bool
		err     error
	)
	for attempt := 1; attempt <= maxUpdateAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return domain.PrivateMessage{}, false, err
		}
		err = r.db.Update(func(txn *badger.Txn) error {
			key, value, err := lookup(txn, id)
			if err != nil {
				return err
			}
			if message, err = decodeMessage(value); err != nil {
				return err
			}
			if changed, err = patch(&message); err != nil || !changed {
				return err
			}
			return txn.Set(key, encodeMessage(message))
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		r.log.Debug("Update conflict, retrying", "message_id", id, "attempt", attempt)
	}
	if err != nil {
		return domain.PrivateMessage{}, false, wrap(err)
	}
	return message, changed, nil
}

func lookup(txn *badger.Txn, id string) ([]byte, []byte, error) {
	item, err := txn.Get(indexKey(id))
	if err != nil {
		return nil, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, err
	}
	item, err = txn.Get(key)
	if err != nil {
		return nil, nil, err
	}
	value, err := item.ValueCopy(nil)
	return key, value, err
}

// wrap maps storage errors onto the taxonomy and leaves the others untouched.
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return errors.ErrNotFound
	case errors.Is(err, errors.ErrNotFound), errors.Is(err, errors.ErrValidation),
		errors.Is(err, errors.ErrForbidden), errors.Is(err, errors.ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("%w: %w", errors.ErrRepository, err)
	}
}
