package runtime_test

import (
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"chat-presence/runtime"
	"chat-presence/sink"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newConn() *sink.ConnectionSink {
	return sink.NewConnectionSink(8, 8, time.Minute)
}

func idsOf(conns []contract.Connection) []domain.ConnectionID {
	return lo.Map(conns, func(c contract.Connection, _ int) domain.ConnectionID {
		return c.ID()
	})
}

func TestConnectionRegistry_Bind_Multi_Device(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()
	phone, laptop := newConn(), newConn()
	registry.Register(phone)
	registry.Register(laptop)

	// Given the same identity set up on two devices
	req.NoError(registry.Bind(phone, "u1"))
	req.NoError(registry.Bind(laptop, "u1"))

	// Then both connections are reachable through it
	req.ElementsMatch([]domain.ConnectionID{phone.ID(), laptop.ID()}, idsOf(registry.ConnectionsFor("u1")))

	user, ok := registry.IdentityOf(phone.ID())
	req.True(ok)
	req.Equal(domain.UserID("u1"), user)
}

func TestConnectionRegistry_Rebind_Replaces_Identity(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()
	conn := newConn()
	registry.Register(conn)

	req.NoError(registry.Bind(conn, "u1"))
	req.NoError(registry.Bind(conn, "u1"))
	req.NoError(registry.Bind(conn, "u2"))

	req.Empty(registry.ConnectionsFor("u1"))
	req.Len(registry.ConnectionsFor("u2"), 1)
}

func TestConnectionRegistry_Unbind_And_Deregister(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()
	conn := newConn()
	registry.Register(conn)
	req.NoError(registry.Bind(conn, "u1"))

	// Unbind of an unbound connection is a no-op
	registry.Unbind("unknown")

	registry.Unbind(conn.ID())
	req.NoError(registry.Deregister(conn.ID()))

	_, ok := registry.Lookup(conn.ID())
	req.False(ok)
	_, ok = registry.IdentityOf(conn.ID())
	req.False(ok)
	req.Empty(registry.ConnectionsFor("u1"))
	req.Zero(registry.Count())
}

func TestConnectionRegistry_Deregister_While_Bound(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()
	conn := newConn()
	registry.Register(conn)
	req.NoError(registry.Bind(conn, "u1"))

	err := registry.Deregister(conn.ID())

	// The violation is reported, and the binding is cleared anyway
	req.ErrorIs(err, errors.ErrRegistryInvariant)
	req.Empty(registry.ConnectionsFor("u1"))
}

func TestConnectionRegistry_Bind_Refused(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()

	unregistered := newConn()
	req.ErrorIs(registry.Bind(unregistered, "u1"), errors.ErrRegistryInvariant)

	closed := newConn()
	registry.Register(closed)
	closed.Close()
	req.ErrorIs(registry.Bind(closed, "u1"), errors.ErrConnectionClosed)
	req.Empty(registry.ConnectionsFor("u1"))
}

func TestConnectionRegistry_Concurrent_Bind(t *testing.T) {
	req := require.New(t)
	registry := runtime.NewConnectionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := newConn()
			registry.Register(conn)
			_ = registry.Bind(conn, "u1")
		}()
	}
	wg.Wait()

	req.Equal(100, registry.Count())
	req.Len(registry.ConnectionsFor("u1"), 100)
}
