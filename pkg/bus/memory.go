package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryBus is a process-local Bus.
// The registration map is guarded by a RWMutex; each mailbox carries its own
// lock so that enqueue and dequeue never contend on the registry.
type MemoryBus struct {
	mu        sync.RWMutex
	mailboxes map[AgentID]*mailbox
	logger    *zap.Logger
}

// NewMemoryBus creates an empty in-memory bus. A nil logger disables logging.
func NewMemoryBus(logger *zap.Logger) *MemoryBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryBus{
		mailboxes: make(map[AgentID]*mailbox),
		logger:    logger.Named("bus"),
	}
}

// Register creates a mailbox for id. Calling Register twice for the same id is a no-op.
func (b *MemoryBus) Register(_ context.Context, id AgentID) error {
	if id == "" {
		return fmt.Errorf("agent id cannot be empty")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.mailboxes[id]; ok {
		return nil
	}
	b.mailboxes[id] = newMailbox()
	b.logger.Info("Registered agent", zap.String("agent_id", string(id)))
	return nil
}

// Send enqueues msg on the receiver's mailbox.
// Returns ErrUnknownRecipient if the receiver was never registered.
func (b *MemoryBus) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	mb, ok := b.lookup(msg.Receiver)
	if !ok {
		b.logger.Warn("Dropping message for unregistered agent",
			zap.String("receiver", string(msg.Receiver)),
			zap.String("sender", string(msg.Sender)),
			zap.String("type", string(msg.Type)))
		return fmt.Errorf("send to %s: %w", msg.Receiver, ErrUnknownRecipient)
	}

	mb.push(msg)
	return nil
}

// Receive waits up to timeout for the next message addressed to id.
// A timeout <= 0 only checks the mailbox once.
func (b *MemoryBus) Receive(ctx context.Context, id AgentID, timeout time.Duration) (Message, bool, error) {
	mb, ok := b.lookup(id)
	if !ok {
		return Message{}, false, fmt.Errorf("receive on %s: %w", id, ErrUnknownRecipient)
	}
	return mb.pop(ctx, timeout)
}

// Broadcast delivers a copy of msg to every registered agent not in exclude.
// The registry is read under the shared lock so concurrent registrations are safe.
func (b *MemoryBus) Broadcast(_ context.Context, msg Message, exclude ...AgentID) error {
	if msg.Receiver == "" {
		msg.Receiver = Everyone
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, mb := range b.mailboxes {
		if excluded(id, exclude) {
			continue
		}
		mb.push(msg.addressedTo(id))
	}
	return nil
}

// Agents returns the registered ids in sorted order.
func (b *MemoryBus) Agents(_ context.Context) ([]AgentID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]AgentID, 0, len(b.mailboxes))
	for id := range b.mailboxes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Pending returns the number of queued messages for id.
func (b *MemoryBus) Pending(_ context.Context, id AgentID) (int, error) {
	mb, ok := b.lookup(id)
	if !ok {
		return 0, fmt.Errorf("pending on %s: %w", id, ErrUnknownRecipient)
	}
	return mb.len(), nil
}

// Close is a no-op for the in-memory driver.
func (b *MemoryBus) Close() error {
	return nil
}

func (b *MemoryBus) lookup(id AgentID) (*mailbox, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mb, ok := b.mailboxes[id]
	return mb, ok
}

// mailbox is an unbounded FIFO queue with a one-slot wakeup signal for its consumer.
type mailbox struct {
	mu     sync.Mutex
	queue  []Message
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (mb *mailbox) push(msg Message) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, msg)
	mb.mu.Unlock()

	// A pending signal already covers this message
	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

func (mb *mailbox) tryPop() (Message, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if len(mb.queue) == 0 {
		return Message{}, false
	}
	msg := mb.queue[0]
	mb.queue[0] = Message{}
	mb.queue = mb.queue[1:]
	return msg, true
}

func (mb *mailbox) pop(ctx context.Context, timeout time.Duration) (Message, bool, error) {
	if msg, ok := mb.tryPop(); ok {
		return msg, true, nil
	}
	if timeout <= 0 {
		return Message{}, false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Message{}, false, ctx.Err()
		case <-timer.C:
			return Message{}, false, nil
		case <-mb.notify:
			if msg, ok := mb.tryPop(); ok {
				return msg, true, nil
			}
		}
	}
}

func (mb *mailbox) len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.queue)
}
