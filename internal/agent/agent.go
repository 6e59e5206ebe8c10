// Package agent provides the run loop shared by every worker agent.
//
// An Agent owns one goroutine that polls its mailbox and hands each message to
// a Handler. Handler failures never stop the loop: an error or panic is turned
// into an ERROR message addressed to whoever should receive the reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

const (
	// DefaultPollTimeout bounds each mailbox receive
	DefaultPollTimeout = 500 * time.Millisecond

	// DefaultStopTimeout bounds how long Stop waits for the loop to exit
	DefaultStopTimeout = 5 * time.Second
)

var (
	// ErrAlreadyStarted is returned by Start on an agent that has been started before.
	ErrAlreadyStarted = errors.New("agent already started")

	// ErrStopTimeout is returned by Stop when the loop did not exit in time.
	ErrStopTimeout = errors.New("agent did not stop in time")
)

// State is the lifecycle state of an agent.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Handler processes one message. Returning an error reports a failure to the requester.
type Handler interface {
	Handle(ctx context.Context, msg bus.Message, out *Outbox) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg bus.Message, out *Outbox) error

func (f HandlerFunc) Handle(ctx context.Context, msg bus.Message, out *Outbox) error {
	return f(ctx, msg, out)
}

// Options tunes an agent. Zero values select the defaults.
type Options struct {
	PollTimeout time.Duration
	StopTimeout time.Duration
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Agent runs a Handler against one mailbox.
type Agent struct {
	id      bus.AgentID
	bus     bus.Bus
	handler Handler
	opts    Options
	logger  *zap.Logger
	outbox  *Outbox

	state    atomic.Int32
	stopOnce sync.Once
	done     chan struct{}
}

// New creates an agent. It does not touch the bus until Start.
func New(id bus.AgentID, b bus.Bus, handler Handler, opts Options) *Agent {
	opts = opts.withDefaults()
	logger := opts.Logger.Named("agent").With(zap.String("agent_id", string(id)))
	return &Agent{
		id:      id,
		bus:     b,
		handler: handler,
		opts:    opts,
		logger:  logger,
		outbox:  NewOutbox(id, b),
		done:    make(chan struct{}),
	}
}

// ID returns the agent's mailbox id.
func (a *Agent) ID() bus.AgentID {
	return a.id
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	return State(a.state.Load())
}

// Start registers the agent with the bus and launches its loop.
// It returns as soon as the loop goroutine is running.
func (a *Agent) Start(ctx context.Context) error {
	if !a.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return fmt.Errorf("start %s: %w", a.id, ErrAlreadyStarted)
	}

	if err := a.bus.Register(ctx, a.id); err != nil {
		a.state.Store(int32(StateStopped))
		close(a.done)
		return fmt.Errorf("failed to register agent %s: %w", a.id, err)
	}

	go a.run(ctx)
	a.logger.Info("Agent started")
	return nil
}

// Stop asks the loop to exit and waits up to StopTimeout for it.
// A message already being handled is allowed to finish.
func (a *Agent) Stop() error {
	if a.state.CompareAndSwap(int32(StateNotStarted), int32(StateStopped)) {
		return nil
	}
	a.state.Store(int32(StateStopped))

	select {
	case <-a.done:
		a.stopOnce.Do(func() { a.logger.Info("Agent stopped") })
		return nil
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("Agent did not stop in time", zap.Duration("timeout", a.opts.StopTimeout))
		return fmt.Errorf("stop %s: %w", a.id, ErrStopTimeout)
	}
}

func (a *Agent) run(ctx context.Context) {
	defer close(a.done)

	for a.State() == StateRunning {
		msg, ok, err := a.bus.Receive(ctx, a.id, a.opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				a.logger.Debug("Context cancelled, leaving loop")
				a.state.Store(int32(StateStopped))
				return
			}
			if de, isDecodeErr := bus.AsDecodeError(err); isDecodeErr {
				a.reject(ctx, de)
				continue
			}
			a.logger.Error("Failed to receive message", zap.Error(err))
			a.pause(ctx)
			continue
		}
		if !ok {
			continue
		}

		a.dispatch(ctx, msg)
	}
}

// pause waits one poll interval so that a persistent bus error does not spin.
func (a *Agent) pause(ctx context.Context) {
	t := time.NewTimer(a.opts.PollTimeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (a *Agent) dispatch(ctx context.Context, msg bus.Message) {
	a.logger.Debug("Handling message",
		zap.String("type", string(msg.Type)),
		zap.String("kind", msg.Kind()),
		zap.String("sender", string(msg.Sender)))

	err := a.safeHandle(ctx, msg)
	if err == nil {
		return
	}

	a.logger.Error("Handler failed",
		zap.String("kind", msg.Kind()),
		zap.String("sender", string(msg.Sender)),
		zap.Error(err))

	// Never answer an error with an error
	if msg.Type == bus.TypeError {
		return
	}
	if sendErr := a.outbox.Fail(ctx, msg, err); sendErr != nil {
		a.logger.Error("Failed to report handler failure", zap.Error(sendErr))
	}
}

// reject answers a request or query whose payload could not be decoded, so the
// requester fails fast instead of waiting for a reply that never comes.
// Undecodable broadcasts and errors are only logged.
func (a *Agent) reject(ctx context.Context, de *bus.DecodeError) {
	a.logger.Error("Received undecodable message",
		zap.String("kind", de.Kind),
		zap.String("sender", string(de.Msg.Sender)),
		zap.Error(de.Err))

	if de.Msg.Type != bus.TypeRequest && de.Msg.Type != bus.TypeQuery {
		return
	}
	if de.Msg.ReplyAddress() == "" || de.Msg.ConversationID == "" {
		return
	}
	if err := a.outbox.Fail(ctx, de.Msg, de); err != nil {
		a.logger.Error("Failed to report undecodable message", zap.Error(err))
	}
}

func (a *Agent) safeHandle(ctx context.Context, msg bus.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return a.handler.Handle(ctx, msg, a.outbox)
}

// Outbox sends messages on behalf of one agent.
type Outbox struct {
	id  bus.AgentID
	bus bus.Bus
}

// NewOutbox returns an outbox that signs messages as id.
func NewOutbox(id bus.AgentID, b bus.Bus) *Outbox {
	return &Outbox{id: id, bus: b}
}

// ID is the sender stamped on every outgoing message.
func (o *Outbox) ID() bus.AgentID {
	return o.id
}

// Reply answers req, keeping its conversation id. The reply goes to
// req.ReplyTo when set, otherwise to the sender.
func (o *Outbox) Reply(ctx context.Context, req bus.Message, msgType bus.MessageType, content bus.Payload) error {
	return o.Send(ctx, req.ReplyAddress(), msgType, content, req.ConversationID)
}

// Send addresses a new message to one agent.
func (o *Outbox) Send(ctx context.Context, to bus.AgentID, msgType bus.MessageType, content bus.Payload, conversationID string) error {
	return o.bus.Send(ctx, bus.NewMessage(o.id, to, msgType, content, conversationID))
}

// Broadcast sends content to every registered agent except this one and those in exclude.
func (o *Outbox) Broadcast(ctx context.Context, msgType bus.MessageType, content bus.Payload, conversationID string, exclude ...bus.AgentID) error {
	msg := bus.NewMessage(o.id, bus.Everyone, msgType, content, conversationID)
	return o.bus.Broadcast(ctx, msg, append([]bus.AgentID{o.id}, exclude...)...)
}

// Fail reports err to whoever should receive the reply to req.
func (o *Outbox) Fail(ctx context.Context, req bus.Message, err error) error {
	return o.Reply(ctx, req, bus.TypeError, protocol.Failure{Error: err.Error()})
}
