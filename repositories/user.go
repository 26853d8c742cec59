//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"fmt"
	"pairchat/domain"
	"pairchat/errors"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, username string) (domain.User, error)
	GetUser(ctx context.Context, id domain.UserID) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
	SetPresence(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id domain.UserID) []byte {
	return []byte("user:" + string(id))
}

// usernameKey is case insensitive so that "Alice" and "alice" cannot both register.
func usernameKey(username string) []byte {
	return []byte("username:" + strings.ToLower(username))
}

// CreateUser persists a new user and returns it with its generated ID.
func (u *UserRepository) CreateUser(ctx context.Context, username string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is empty", errors.ErrValidation)
	}
	user := domain.User{
		ID:        domain.UserID(uuid.NewString()),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(username)); err == nil {
			return fmt.Errorf("%w: username %q", errors.ErrAlreadyExists, username)
		}
		if err := txn.Set(userKey(user.ID), encodeUser(user)); err != nil {
			return err
		}
		return txn.Set(usernameKey(username), []byte(user.ID))
	})
	if err != nil {
		return domain.User{}, wrap(err)
	}
	return user, nil
}

func (u *UserRepository) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = getUser(txn, id)
		return err
	})
	if err != nil {
		return domain.User{}, wrap(err)
	}
	return user, nil
}

func (u *UserRepository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	if err := ctx.Err(); err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(username))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		user, err = getUser(txn, domain.UserID(id))
		return err
	})
	if err != nil {
		return domain.User{}, wrap(err)
	}
	return user, nil
}

// ListAll returns every registered user sorted by username.
func (u *UserRepository) ListAll(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var users []domain.User
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte("user:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				user, err := decodeUser(value)
				if err != nil {
					return err
				}
				users = append(users, user)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// SetPresence mirrors a presence transition into the user record.
func (u *UserRepository) SetPresence(ctx context.Context, id domain.UserID, online bool, lastSeen time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := u.db.Update(func(txn *badger.Txn) error {
		user, err := getUser(txn, id)
		if err != nil {
			return err
		}
		user.IsOnline = online
		user.LastSeen = lastSeen.UTC()
		return txn.Set(userKey(id), encodeUser(user))
	})
	return wrap(err)
}

func getUser(txn *badger.Txn, id domain.UserID) (domain.User, error) {
	item, err := txn.Get(userKey(id))
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	err = item.Value(func(value []byte) error {
		user, err = decodeUser(value)
		return err
	})
	return user, err
}
