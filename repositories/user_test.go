package repositories

import (
	"context"
	"pairchat/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_CreateUser_Then_Get(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))

	// When
	user, err := repository.CreateUser(ctx, "Alice")
	req.NoError(err)

	// Then
	byID, err := repository.GetUser(ctx, user.ID)
	req.NoError(err)
	req.Equal(user, byID)

	byName, err := repository.GetUserByUsername(ctx, "alice")
	req.NoError(err)
	req.Equal(user.ID, byName.ID)
	req.False(byName.IsOnline)
}

func Test_CreateUser_Duplicate_Username(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))
	_, err := repository.CreateUser(ctx, "alice")
	req.NoError(err)

	_, err = repository.CreateUser(ctx, "ALICE")

	req.ErrorIs(err, errors.ErrAlreadyExists)
}

func Test_GetUser_Unknown_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	_, err := repository.GetUser(context.Background(), "ghost")

	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ListAll_Sorted_By_Username(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))
	for _, name := range []string{"clara", "alice", "bob"} {
		_, err := repository.CreateUser(ctx, name)
		req.NoError(err)
	}

	users, err := repository.ListAll(ctx)

	req.NoError(err)
	req.Len(users, 3)
	req.Equal("alice", users[0].Username)
	req.Equal("bob", users[1].Username)
	req.Equal("clara", users[2].Username)
}

func Test_SetPresence_Mirrors_Online_And_LastSeen(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))
	user, err := repository.CreateUser(ctx, "alice")
	req.NoError(err)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// When
	req.NoError(repository.SetPresence(ctx, user.ID, true, at))

	// Then
	stored, err := repository.GetUser(ctx, user.ID)
	req.NoError(err)
	req.True(stored.IsOnline)
	req.Equal(at, stored.LastSeen)

	req.NoError(repository.SetPresence(ctx, user.ID, false, at.Add(time.Minute)))
	stored, err = repository.GetUser(ctx, user.ID)
	req.NoError(err)
	req.False(stored.IsOnline)
	req.Equal(at.Add(time.Minute), stored.LastSeen)
}

func Test_SetPresence_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	err := repository.SetPresence(context.Background(), "ghost", true, time.Now())

	req.ErrorIs(err, errors.ErrNotFound)
}
