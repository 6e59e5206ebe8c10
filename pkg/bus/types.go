package bus

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AgentID identifies a mailbox owner on the bus.
type AgentID string

// Everyone is the receiver used on a message template passed to Broadcast.
// Each delivered copy is re-addressed to its concrete recipient.
const Everyone AgentID = "*"

// MessageType is the closed set of message kinds exchanged between agents.
type MessageType string

const (
	// TypeRequest asks the receiver to perform an action
	TypeRequest MessageType = "request"

	// TypeResponse carries the result of a request
	TypeResponse MessageType = "response"

	// TypeInform is a fire-and-forget broadcast of a fact
	TypeInform MessageType = "inform"

	// TypeQuery is an agent asking for data it is missing
	TypeQuery MessageType = "query"

	// TypeComplete announces that a conversation has finished
	TypeComplete MessageType = "complete"

	// TypeError reports a failure with a human-readable reason
	TypeError MessageType = "error"
)

// Validate checks if the MessageType is a valid enum value.
func (t MessageType) Validate() error {
	switch t {
	case TypeRequest, TypeResponse, TypeInform, TypeQuery, TypeComplete, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown message type: %q", t)
	}
}

// Payload is the content of a message. Concrete payloads are plain value
// types; Kind names the variant so receivers can match on it and codecs can
// rebuild it.
type Payload interface {
	Kind() string
}

// Message is the unit of communication on the bus.
// Messages are values: copying one never shares mutable state with the original.
type Message struct {
	ID             string      // UUID assigned at creation
	Sender         AgentID     // Agent that created the message
	Receiver       AgentID     // Mailbox the message is addressed to
	Type           MessageType // Request, response, inform, ...
	Content        Payload     // Tagged-variant payload, may be nil
	Timestamp      time.Time   // Creation time
	ConversationID string      // Correlation token shared by every message of one run
	ReplyTo        AgentID     // Optional: where replies should go instead of Sender
}

// NewMessage constructs a Message with a generated ID and the current timestamp.
func NewMessage(sender, receiver AgentID, msgType MessageType, content Payload, conversationID string) Message {
	return Message{
		ID:             uuid.New().String(),
		Sender:         sender,
		Receiver:       receiver,
		Type:           msgType,
		Content:        content,
		Timestamp:      time.Now(),
		ConversationID: conversationID,
	}
}

// WithReplyTo returns a copy of the message whose replies should go to id.
func (m Message) WithReplyTo(id AgentID) Message {
	m.ReplyTo = id
	return m
}

// ReplyAddress returns where a reply to this message should be sent.
func (m Message) ReplyAddress() AgentID {
	if m.ReplyTo != "" {
		return m.ReplyTo
	}
	return m.Sender
}

// Kind returns the payload kind, or "" when the message has no content.
func (m Message) Kind() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Kind()
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if m.Sender == "" {
		return fmt.Errorf("message sender cannot be empty")
	}

	if m.Receiver == "" {
		return fmt.Errorf("message receiver cannot be empty")
	}

	if err := m.Type.Validate(); err != nil {
		return fmt.Errorf("invalid message type: %w", err)
	}

	if m.ConversationID == "" {
		return fmt.Errorf("message conversation id cannot be empty")
	}

	return nil
}

// addressedTo returns an independent copy of the message for one recipient.
// Conversation id and reply-to are preserved; the copy gets its own ID.
func (m Message) addressedTo(id AgentID) Message {
	m.ID = uuid.New().String()
	m.Receiver = id
	return m
}

// excluded reports whether id appears in the exclusion list.
func excluded(id AgentID, exclude []AgentID) bool {
	for _, e := range exclude {
		if e == id {
			return true
		}
	}
	return false
}
