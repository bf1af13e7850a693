//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-presence/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	// Spawn starts a worker under the context of a running Run.
	Spawn(worker Worker) error
	Stop()
}

type WorkerName string

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

// Connection is one live transport session with a client.
// Send never blocks: a full outbound buffer drops the event.
// Close flips the liveness flag and reports whether this call did it.
type Connection interface {
	ID() domain.ConnectionID
	Send(evt domain.OutboundEvent) error
	Alive() bool
	Close() bool
}

type ITranslator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

type ITranslationCache interface {
	Get(targetLanguage, text string) (string, error)
	Put(targetLanguage, text, translated string) error
}
