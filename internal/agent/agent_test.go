package agent

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type ping struct{}

func (ping) Kind() string { return "ping" }

func fastOptions(t *testing.T) Options {
	return Options{
		PollTimeout: 10 * time.Millisecond,
		StopTimeout: time.Second,
		Logger:      zaptest.NewLogger(t),
	}
}

// setupAgent starts an agent named "worker" and registers a "client" mailbox.
func setupAgent(t *testing.T, h Handler) (*Agent, bus.Bus) {
	ctx := context.Background()
	b := bus.NewMemoryBus(nil)
	require.NoError(t, b.Register(ctx, "client"))

	a := New("worker", b, h, fastOptions(t))
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { _ = a.Stop() })

	return a, b
}

func receive(t *testing.T, b bus.Bus, id bus.AgentID) bus.Message {
	msg, ok, err := b.Receive(context.Background(), id, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok, "expected a message for %s", id)
	return msg
}

func TestAgent_Lifecycle(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus(nil)
	a := New("worker", b, HandlerFunc(func(context.Context, bus.Message, *Outbox) error { return nil }), fastOptions(t))

	assert.Equal(t, StateNotStarted, a.State())
	assert.Equal(t, bus.AgentID("worker"), a.ID())

	require.NoError(t, a.Start(ctx))
	assert.Equal(t, StateRunning, a.State())

	ids, err := b.Agents(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, bus.AgentID("worker"))

	err = a.Start(ctx)
	assert.ErrorIs(t, err, ErrAlreadyStarted)

	require.NoError(t, a.Stop())
	assert.Equal(t, StateStopped, a.State())
	require.NoError(t, a.Stop(), "Stop is idempotent")
}

func TestAgent_StopBeforeStart(t *testing.T) {
	a := New("worker", bus.NewMemoryBus(nil), HandlerFunc(func(context.Context, bus.Message, *Outbox) error { return nil }), Options{})
	require.NoError(t, a.Stop())
	assert.Equal(t, StateStopped, a.State())
}

func TestAgent_RepliesThroughOutbox(t *testing.T) {
	_, b := setupAgent(t, HandlerFunc(func(ctx context.Context, msg bus.Message, out *Outbox) error {
		return out.Reply(ctx, msg, bus.TypeResponse, ping{})
	}))

	req := bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "conv-1")
	require.NoError(t, b.Send(context.Background(), req))

	reply := receive(t, b, "client")
	assert.Equal(t, bus.TypeResponse, reply.Type)
	assert.Equal(t, bus.AgentID("worker"), reply.Sender)
	assert.Equal(t, "conv-1", reply.ConversationID)
}

func TestAgent_HandlerErrorBecomesErrorMessage(t *testing.T) {
	var calls atomic.Int32
	_, b := setupAgent(t, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		calls.Add(1)
		return errors.New("cannot do that")
	}))
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "conv-1")))
	reply := receive(t, b, "client")
	assert.Equal(t, bus.TypeError, reply.Type)
	assert.Equal(t, "conv-1", reply.ConversationID)
	assert.Equal(t, protocol.Failure{Error: "cannot do that"}, reply.Content)

	// The loop keeps running after a failure
	require.NoError(t, b.Send(ctx, bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "conv-1")))
	receive(t, b, "client")
	assert.Equal(t, int32(2), calls.Load())
}

func TestAgent_PanicIsRecovered(t *testing.T) {
	a, b := setupAgent(t, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		panic("kaboom")
	}))

	require.NoError(t, b.Send(context.Background(), bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "c")))
	reply := receive(t, b, "client")

	require.Equal(t, bus.TypeError, reply.Type)
	assert.Contains(t, reply.Content.(protocol.Failure).Error, "kaboom")
	assert.Equal(t, StateRunning, a.State())
}

func TestAgent_ErrorGoesToReplyTo(t *testing.T) {
	_, b := setupAgent(t, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		return errors.New("nope")
	}))
	ctx := context.Background()
	require.NoError(t, b.Register(ctx, "supervisor"))

	req := bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "c").WithReplyTo("supervisor")
	require.NoError(t, b.Send(ctx, req))

	reply := receive(t, b, "supervisor")
	assert.Equal(t, bus.TypeError, reply.Type)

	n, err := b.Pending(ctx, "client")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAgent_FailingOnErrorMessageIsNotAnswered(t *testing.T) {
	_, b := setupAgent(t, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		return errors.New("nope")
	}))
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, bus.NewMessage("client", "worker", bus.TypeError, protocol.Failure{Error: "x"}, "c")))
	_, ok, err := b.Receive(ctx, "client", 100*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAgent_StopWaitsForInFlightHandler(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	a, b := setupAgent(t, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}))

	require.NoError(t, b.Send(context.Background(), bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "c")))
	<-started

	require.NoError(t, a.Stop())
	assert.True(t, finished.Load())
}

func TestAgent_StopTimeout(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus(nil)
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	a := New("worker", b, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		close(started)
		<-release
		return nil
	}), Options{PollTimeout: 10 * time.Millisecond, StopTimeout: 20 * time.Millisecond})
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Register(ctx, "client"))
	require.NoError(t, b.Send(ctx, bus.NewMessage("client", "worker", bus.TypeRequest, ping{}, "c")))
	<-started

	assert.ErrorIs(t, a.Stop(), ErrStopTimeout)
}

func TestAgent_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := bus.NewMemoryBus(nil)
	a := New("worker", b, HandlerFunc(func(context.Context, bus.Message, *Outbox) error { return nil }),
		Options{PollTimeout: time.Minute})
	require.NoError(t, a.Start(ctx))

	cancel()
	require.Eventually(t, func() bool { return a.State() == StateStopped }, time.Second, 5*time.Millisecond)
	assert.NoError(t, a.Stop())
}

func TestOutbox_BroadcastExcludesSelf(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemoryBus(nil)
	for _, id := range []bus.AgentID{"me", "a", "b"} {
		require.NoError(t, b.Register(ctx, id))
	}

	out := NewOutbox("me", b)
	require.NoError(t, out.Broadcast(ctx, bus.TypeInform, ping{}, "c", "a"))

	for id, want := range map[bus.AgentID]int{"me": 0, "a": 0, "b": 1} {
		n, err := b.Pending(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, n, "pending for %s", id)
	}
}

func TestAgent_UndecodableRequestIsAnswered(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	b, err := bus.NewRedisBus(&redis.Options{Addr: mr.Addr()}, "agent-test", protocol.Codec(), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.Register(ctx, "client"))

	// Sent by a newer build that knows payload kinds this one does not
	mailbox := bus.MailboxKey("agent-test", "worker")
	_, err = mr.Push(mailbox,
		`{"id":"m1","type":"inform","sender":"client","receiver":"worker","kind":"from_the_future","content":{},"conversation_id":"conv-1"}`,
		`{"id":"m2","type":"request","sender":"client","receiver":"worker","kind":"from_the_future","content":{},"conversation_id":"conv-1"}`)
	require.NoError(t, err)

	var calls atomic.Int32
	opts := fastOptions(t)
	// Redis receives block for at least a second
	opts.StopTimeout = 3 * time.Second
	a := New("worker", b, HandlerFunc(func(context.Context, bus.Message, *Outbox) error {
		calls.Add(1)
		return nil
	}), opts)
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() { _ = a.Stop() })

	reply := receive(t, b, "client")
	assert.Equal(t, bus.TypeError, reply.Type)
	assert.Equal(t, bus.AgentID("worker"), reply.Sender)
	assert.Equal(t, "conv-1", reply.ConversationID)
	assert.Contains(t, reply.Content.(protocol.Failure).Error, "from_the_future")

	// Only the request is answered and the handler never sees either message
	_, ok, err := b.Receive(ctx, "client", 0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, StateRunning, a.State())
}
