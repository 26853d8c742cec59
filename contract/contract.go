//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"pairchat/domain"
	"pairchat/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is the outbound side of one live connection.
type EventSink interface {
	Consume(ctx context.Context, e event.Event) error
}

// IRegistry is the room subscription table.
type IRegistry interface {
	Register(conn domain.ConnectionID, sink EventSink)
	Unregister(conn domain.ConnectionID) []domain.RoomKey
	Subscribe(room domain.RoomKey, conn domain.ConnectionID)
	Unsubscribe(room domain.RoomKey, conn domain.ConnectionID)
	IsSubscribed(room domain.RoomKey, conn domain.ConnectionID) bool
	GetSinksForRoom(room domain.RoomKey, except ...domain.ConnectionID) []EventSink
	ActiveSinks() []EventSink
	Count() int
}

// IPresence tracks which identities are reachable.
type IPresence interface {
	Seed(users []domain.User)
	RecordConnect(identity domain.Identity, conn domain.ConnectionID) domain.PresenceEntry
	RecordDisconnect(identity domain.Identity, conn domain.ConnectionID) (domain.PresenceEntry, bool)
	Snapshot() []domain.PresenceEntry
	Get(id domain.UserID) (domain.PresenceEntry, bool)
	Online() int
}

// IVerifier turns a bearer token into a credential.
type IVerifier interface {
	Verify(token string) (domain.Credential, error)
}

// ICensor masks forbidden words and reports which ones matched.
type ICensor interface {
	Censor(content string) (string, []string)
}

// IDispatcher runs tasks sharing a key one after the other.
type IDispatcher interface {
	Dispatch(ctx context.Context, key string, task func(ctx context.Context)) error
}
