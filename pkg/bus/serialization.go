package bus

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// envelope is the wire form of a Message.
// Content is kept raw so that it can be decoded once the kind is known.
type envelope struct {
	ID             string          `json:"id"`
	Type           MessageType     `json:"type"`
	Sender         AgentID         `json:"sender"`
	Receiver       AgentID         `json:"receiver"`
	Kind           string          `json:"kind,omitempty"`
	Content        json.RawMessage `json:"content,omitempty"`
	TimestampMs    int64           `json:"timestamp_ms"`
	ConversationID string          `json:"conversation_id"`
	ReplyTo        AgentID         `json:"reply_to,omitempty"`
}

// DecodeError is returned by Decode when the envelope parsed but its payload
// could not be rebuilt. Msg carries the header with a nil Content, so callers
// can still route on ConversationID and ReplyAddress.
type DecodeError struct {
	Msg  Message
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q payload from %s: %v", e.Kind, e.Msg.Sender, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type decodeFunc func(raw json.RawMessage) (Payload, error)

// Codec converts messages to and from JSON.
// Payload kinds must be registered before messages carrying them are decoded.
type Codec struct {
	mu       sync.RWMutex
	decoders map[string]decodeFunc
}

// NewCodec creates a codec with no registered payload kinds.
func NewCodec() *Codec {
	return &Codec{decoders: make(map[string]decodeFunc)}
}

// Register makes payload type T decodable. The kind is taken from T's zero value.
// Registering the same kind again replaces the previous decoder.
func Register[T Payload](c *Codec) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decoders[zero.Kind()] = func(raw json.RawMessage) (Payload, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Kinds returns the registered payload kinds in sorted order.
func (c *Codec) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	kinds := make([]string, 0, len(c.decoders))
	for k := range c.decoders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Encode serialises msg to JSON.
func (c *Codec) Encode(msg Message) ([]byte, error) {
	env := envelope{
		ID:             msg.ID,
		Type:           msg.Type,
		Sender:         msg.Sender,
		Receiver:       msg.Receiver,
		Kind:           msg.Kind(),
		TimestampMs:    msg.Timestamp.UnixMilli(),
		ConversationID: msg.ConversationID,
		ReplyTo:        msg.ReplyTo,
	}

	if msg.Content != nil {
		raw, err := json.Marshal(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", env.Kind, err)
		}
		env.Content = raw
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return data, nil
}

// Decode parses a message produced by Encode.
// When only the payload is bad the error is a *DecodeError holding the header;
// it wraps ErrUnknownPayload if the payload kind was never registered.
func (c *Codec) Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	msg := Message{
		ID:             env.ID,
		Sender:         env.Sender,
		Receiver:       env.Receiver,
		Type:           env.Type,
		Timestamp:      time.UnixMilli(env.TimestampMs),
		ConversationID: env.ConversationID,
		ReplyTo:        env.ReplyTo,
	}

	if env.Kind == "" {
		return msg, nil
	}

	c.mu.RLock()
	decode, ok := c.decoders[env.Kind]
	c.mu.RUnlock()
	if !ok {
		return msg, &DecodeError{Msg: msg, Kind: env.Kind, Err: ErrUnknownPayload}
	}

	content, err := decode(env.Content)
	if err != nil {
		return msg, &DecodeError{Msg: msg, Kind: env.Kind, Err: err}
	}
	msg.Content = content

	return msg, nil
}
