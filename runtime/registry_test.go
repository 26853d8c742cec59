package runtime

import (
	"pairchat/domain"
	"pairchat/sink"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Subscribe_One_Room_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	recorder := sink.NewRecorder()

	// Given a registered connection
	registry.Register("c1", recorder)
	req.Equal(1, registry.Count())
	req.Empty(registry.GetSinksForRoom("alice:bob"))

	// When it subscribes a room
	registry.Subscribe("alice:bob", "c1")

	// Then
	req.True(registry.IsSubscribed("alice:bob", "c1"))
	sinks := registry.GetSinksForRoom("alice:bob")
	req.Len(sinks, 1)
	req.Same(recorder, sinks[0])
}

func TestRegistry_Except_Skips_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	alice, bob := sink.NewRecorder(), sink.NewRecorder()
	registry.Register("c1", alice)
	registry.Register("c2", bob)
	registry.Subscribe("alice:bob", "c1")
	registry.Subscribe("alice:bob", "c2")

	sinks := registry.GetSinksForRoom("alice:bob", "c1")

	req.Len(sinks, 1)
	req.Same(bob, sinks[0])
}

func TestRegistry_Unregister_Leaves_Every_Room(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", sink.NewRecorder())
	registry.Register("c2", sink.NewRecorder())
	registry.Subscribe("alice:bob", "c1")
	registry.Subscribe("alice:clara", "c1")
	registry.Subscribe("alice:bob", "c2")

	// When
	rooms := registry.Unregister("c1")

	// Then
	req.Equal([]domain.RoomKey{"alice:bob", "alice:clara"}, rooms)
	req.False(registry.IsSubscribed("alice:bob", "c1"))
	req.Len(registry.GetSinksForRoom("alice:bob"), 1)
	req.Nil(registry.GetSinksForRoom("alice:clara"))
	req.Equal(1, registry.Count())
	req.Len(registry.ActiveSinks(), 1)
}

func TestRegistry_Subscribe_Unregistered_Is_Ignored(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Subscribe("alice:bob", "ghost")

	req.False(registry.IsSubscribed("alice:bob", "ghost"))
	req.Nil(registry.GetSinksForRoom("alice:bob"))
}

func TestRegistry_Unsubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	registry.Register("c1", sink.NewRecorder())
	registry.Subscribe("alice:bob", "c1")

	registry.Unsubscribe("alice:bob", "c1")

	req.False(registry.IsSubscribed("alice:bob", "c1"))
	req.Empty(registry.Unregister("c1"))
}
