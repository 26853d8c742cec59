package repositories

import (
	"context"
	"log/slog"
	"pairchat/domain"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func Test_DescribeEntry_Covers_Every_Key_Kind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	users := NewUserRepository(db)
	messages := NewMessageRepository(db, slog.Default())

	// Given one user and one file message
	alice, err := users.CreateUser(ctx, "Alice")
	req.NoError(err)
	message := text("alice", "bob", "look")
	message.Type = domain.FileMessage
	message.File = &domain.FileDescriptor{Filename: "f1", OriginalName: "cv.pdf", Size: 3, MimeType: "application/pdf", URL: "/f1"}
	_, err = messages.Insert(ctx, message)
	req.NoError(err)

	// When every key is described
	kinds := make(map[string]Entry)
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			entry := DescribeEntry(it.Item().KeyCopy(nil), value)
			kinds[entry.Kind] = entry
		}
		return nil
	})
	req.NoError(err)

	// Then
	req.Len(kinds, 4)
	req.Equal("alice:bob", kinds["message"].Owner)
	req.Equal("[file cv.pdf] look", kinds["message"].Detail)
	req.Equal("Alice", kinds["user"].Owner)
	req.Equal("offline", kinds["user"].Detail)
	req.Equal(string(alice.ID), kinds["username"].Detail)
	req.Equal("raw", DescribeEntry([]byte("other"), []byte("xyz")).Kind)
}
