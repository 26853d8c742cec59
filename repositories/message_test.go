package repositories

import (
	"context"
	"log/slog"
	"pairchat/domain"
	"pairchat/errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func text(sender, receiver domain.UserID, content string) domain.PrivateMessage {
	return domain.PrivateMessage{Sender: sender, Receiver: receiver, Content: content, Type: domain.TextMessage}
}

func Test_Insert_Assigns_ID_And_CreatedAt(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// When
	message, err := repository.Insert(ctx, text("alice", "bob", "hello"))

	// Then
	req.NoError(err)
	req.NotEmpty(message.ID)
	req.False(message.CreatedAt.IsZero())

	found, err := repository.FindByID(ctx, message.ID)
	req.NoError(err)
	req.Equal(message, found)
}

func Test_FindByPair_Returns_Oldest_To_Newest_For_Both_Orders(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// Given
	contents := []string{"one", "two", "three"}
	for i, content := range contents {
		sender, receiver := domain.UserID("alice"), domain.UserID("bob")
		if i%2 == 1 {
			sender, receiver = receiver, sender
		}
		_, err := repository.Insert(ctx, text(sender, receiver, content))
		req.NoError(err)
	}
	_, err := repository.Insert(ctx, text("alice", "clara", "elsewhere"))
	req.NoError(err)

	// When
	fromAlice, hasMore, err := repository.FindByPair(ctx, "alice", "bob", 50, "")
	req.NoError(err)
	fromBob, _, err := repository.FindByPair(ctx, "bob", "alice", 50, "")
	req.NoError(err)

	// Then
	req.False(hasMore)
	req.Equal(fromAlice, fromBob)
	req.Len(fromAlice, len(contents))
	for i, content := range contents {
		req.Equal(content, fromAlice[i].Content)
	}
}

func Test_FindByPair_Paginates_With_Before(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// Given
	var ids []string
	for _, content := range []string{"m1", "m2", "m3", "m4", "m5"} {
		message, err := repository.Insert(ctx, text("alice", "bob", content))
		req.NoError(err)
		ids = append(ids, message.ID)
	}

	// When
	latest, hasMore, err := repository.FindByPair(ctx, "alice", "bob", 2, "")

	// Then
	req.NoError(err)
	req.True(hasMore)
	req.Equal([]string{ids[3], ids[4]}, []string{latest[0].ID, latest[1].ID})

	// When
	older, hasMore, err := repository.FindByPair(ctx, "alice", "bob", 2, latest[0].ID)
	req.NoError(err)
	req.True(hasMore)
	req.Equal([]string{ids[1], ids[2]}, []string{older[0].ID, older[1].ID})

	oldest, hasMore, err := repository.FindByPair(ctx, "alice", "bob", 2, older[0].ID)
	req.NoError(err)
	req.False(hasMore)
	req.Len(oldest, 1)
	req.Equal(ids[0], oldest[0].ID)
}

func Test_FindByPair_Unknown_Cursor_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default())

	_, _, err := repository.FindByPair(context.Background(), "alice", "bob", 10, "missing")

	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_FindByPair_Cursor_From_Another_Room_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())
	other, err := repository.Insert(ctx, text("alice", "clara", "hi"))
	req.NoError(err)

	_, _, err = repository.FindByPair(ctx, "alice", "bob", 10, other.ID)

	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Round_Trip_Keeps_File_Descriptor(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())

	// Given
	file := &domain.FileDescriptor{
		Filename:     "a1b2.png",
		OriginalName: "holidays.png",
		Size:         2048,
		MimeType:     "image/png",
		URL:          "/uploads/a1b2.png",
	}
	sent, err := repository.Insert(ctx, domain.PrivateMessage{
		Sender: "bob", Receiver: "alice", Type: domain.ImageMessage, File: file,
	})
	req.NoError(err)

	// When
	messages, _, err := repository.FindByPair(ctx, "alice", "bob", 50, "")

	// Then
	req.NoError(err)
	req.Len(messages, 1)
	req.Equal(sent, messages[0])
	req.Equal(*file, *messages[0].File)
	req.Equal(domain.ImageMessage, messages[0].Type)
}

func Test_UpdateByID_Mark_Read_Twice_Keeps_One_Receipt(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())
	message, err := repository.Insert(ctx, text("alice", "bob", "hello"))
	req.NoError(err)

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	markRead := func(m *domain.PrivateMessage) (bool, error) {
		return m.MarkReadBy("bob", at), nil
	}

	// When
	first, changed, err := repository.UpdateByID(ctx, message.ID, markRead)
	req.NoError(err)
	req.True(changed)
	second, changed, err := repository.UpdateByID(ctx, message.ID, markRead)
	req.NoError(err)

	// Then
	req.False(changed)
	req.Len(second.ReadBy, 1)
	req.Equal(first.ReadBy, second.ReadBy)

	stored, err := repository.FindByID(ctx, message.ID)
	req.NoError(err)
	req.Len(stored.ReadBy, 1)
	req.Equal(domain.UserID("bob"), stored.ReadBy[0].Reader)
}

func Test_UpdateByID_Edit_Is_Persisted(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())
	message, err := repository.Insert(ctx, text("alice", "bob", "hello"))
	req.NoError(err)

	// When
	_, _, err = repository.UpdateByID(ctx, message.ID, func(m *domain.PrivateMessage) (bool, error) {
		m.Edit("hello world", time.Now())
		return true, nil
	})
	req.NoError(err)

	// Then
	stored, err := repository.FindByID(ctx, message.ID)
	req.NoError(err)
	req.Equal("hello world", stored.Content)
	req.True(stored.Edited)
	req.NotNil(stored.EditedAt)
}

func Test_UpdateByID_Patch_Error_Writes_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewMessageRepository(openDB(t), slog.Default())
	message, err := repository.Insert(ctx, text("alice", "bob", "hello"))
	req.NoError(err)

	_, _, err = repository.UpdateByID(ctx, message.ID, func(m *domain.PrivateMessage) (bool, error) {
		m.Content = "tampered"
		return true, errors.ErrForbidden
	})

	req.ErrorIs(err, errors.ErrForbidden)
	stored, err := repository.FindByID(ctx, message.ID)
	req.NoError(err)
	req.Equal("hello", stored.Content)
}

func Test_UpdateByID_Unknown_Message_Is_Not_Found(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openDB(t), slog.Default())

	_, _, err := repository.UpdateByID(context.Background(), "missing", func(*domain.PrivateMessage) (bool, error) {
		return true, nil
	})

	req.ErrorIs(err, errors.ErrNotFound)
}
