package bus

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknownRecipient is returned when a message is addressed to, or a
	// receive is attempted on, an id that has not been registered.
	ErrUnknownRecipient = errors.New("unknown recipient")

	// ErrUnknownPayload is returned when a codec meets a payload kind it has no
	// decoder for.
	ErrUnknownPayload = errors.New("unknown payload kind")
)

// Bus is the contract shared by every bus driver.
// Implementations are safe for concurrent use; each mailbox is expected to
// have a single consumer.
type Bus interface {
	// Register creates a mailbox for id if it does not exist yet. Idempotent.
	Register(ctx context.Context, id AgentID) error

	// Send enqueues msg on the mailbox named by msg.Receiver.
	Send(ctx context.Context, msg Message) error

	// Receive waits up to timeout for the next message in id's mailbox.
	// ok is false when the timeout expired without a message. A message whose
	// payload could not be decoded is consumed and reported as a *DecodeError.
	Receive(ctx context.Context, id AgentID, timeout time.Duration) (msg Message, ok bool, err error)

	// Broadcast sends an independent copy of msg to every registered id
	// that is not listed in exclude.
	Broadcast(ctx context.Context, msg Message, exclude ...AgentID) error

	// Agents returns the registered ids in sorted order.
	Agents(ctx context.Context) ([]AgentID, error)

	// Pending returns the number of messages waiting in id's mailbox.
	Pending(ctx context.Context, id AgentID) (int, error)

	// Close releases driver resources.
	Close() error
}

// IsUnknownRecipient reports whether err was caused by an unregistered receiver.
func IsUnknownRecipient(err error) bool {
	return errors.Is(err, ErrUnknownRecipient)
}

// AsDecodeError returns the *DecodeError in err's chain, if any.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
