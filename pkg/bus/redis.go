package bus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBus is a Bus backed by Redis lists.
// Every mailbox is a list at MailboxKey; the registration set lives at AgentsKey.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type RedisBus struct {
	rdb          *redis.Client
	instanceName string
	codec        *Codec
	logger       *zap.Logger
}

// NewRedisBus creates a bus for the specified instance.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: namespace for all keys (must not be empty)
//   - codec: decoder for every payload kind that may travel over the bus
//   - logger: may be nil
func NewRedisBus(redisOpts *redis.Options, instanceName string, codec *Codec, logger *zap.Logger) (*RedisBus, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	if codec == nil {
		return nil, fmt.Errorf("codec cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisBus{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		codec:        codec,
		logger:       logger.Named("bus"),
	}, nil
}

// Ping verifies Redis connectivity.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection. Implements io.Closer.
func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

// Register adds id to the registration set. Idempotent.
func (b *RedisBus) Register(ctx context.Context, id AgentID) error {
	if id == "" {
		return fmt.Errorf("agent id cannot be empty")
	}

	added, err := b.rdb.SAdd(ctx, AgentsKey(b.instanceName), string(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to register agent %s: %w", id, err)
	}
	if added > 0 {
		b.logger.Info("Registered agent",
			zap.String("agent_id", string(id)),
			zap.String("instance", b.instanceName))
	}
	return nil
}

// sendScript appends ARGV[2] to the mailbox list KEYS[2] only while ARGV[1] is
// a member of the registration set KEYS[1]. Returns 0 when it is not.
var sendScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
	return 0
end
return redis.call('RPUSH', KEYS[2], ARGV[2])
`)

// Send appends msg to the receiver's list.
// The registration check and the push run as one script, so a message is never
// queued for an id that is not registered at that moment.
// Returns ErrUnknownRecipient if the receiver is not in the registration set.
func (b *RedisBus) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	data, err := b.codec.Encode(msg)
	if err != nil {
		return err
	}

	keys := []string{AgentsKey(b.instanceName), MailboxKey(b.instanceName, msg.Receiver)}
	n, err := sendScript.Run(ctx, b.rdb, keys, string(msg.Receiver), data).Int64()
	if err != nil {
		return fmt.Errorf("failed to push message to %s: %w", msg.Receiver, err)
	}
	if n == 0 {
		b.logger.Warn("Dropping message for unregistered agent",
			zap.String("receiver", string(msg.Receiver)),
			zap.String("sender", string(msg.Sender)),
			zap.String("type", string(msg.Type)))
		return fmt.Errorf("send to %s: %w", msg.Receiver, ErrUnknownRecipient)
	}
	return nil
}

// Receive pops the next message from id's list, blocking up to timeout.
// Redis blocks in whole seconds, so the timeout is rounded up to the next second.
// A timeout <= 0 only checks the list once.
// An item whose payload cannot be decoded is consumed and reported as a
// *DecodeError; the returned message then carries its header.
func (b *RedisBus) Receive(ctx context.Context, id AgentID, timeout time.Duration) (Message, bool, error) {
	if err := b.ensureRegistered(ctx, id); err != nil {
		if IsUnknownRecipient(err) {
			return Message{}, false, fmt.Errorf("receive on %s: %w", id, ErrUnknownRecipient)
		}
		return Message{}, false, err
	}

	key := MailboxKey(b.instanceName, id)

	var raw string
	if timeout <= 0 {
		val, err := b.rdb.LPop(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return Message{}, false, nil
		}
		if err != nil {
			return Message{}, false, fmt.Errorf("failed to pop message for %s: %w", id, err)
		}
		raw = val
	} else {
		res, err := b.rdb.BLPop(ctx, wholeSeconds(timeout), key).Result()
		if errors.Is(err, redis.Nil) {
			return Message{}, false, nil
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Message{}, false, ctxErr
			}
			return Message{}, false, fmt.Errorf("failed to pop message for %s: %w", id, err)
		}
		// BLPOP replies with [key, value]
		raw = res[1]
	}

	msg, err := b.codec.Decode([]byte(raw))
	if err != nil {
		b.logger.Warn("Discarding undecodable message",
			zap.String("agent_id", string(id)),
			zap.Error(err))
		return msg, false, fmt.Errorf("receive on %s: %w", id, err)
	}
	return msg, true, nil
}

// Broadcast pushes a copy of msg to every registered agent not in exclude.
// All copies are written in a single pipeline.
func (b *RedisBus) Broadcast(ctx context.Context, msg Message, exclude ...AgentID) error {
	if msg.Receiver == "" {
		msg.Receiver = Everyone
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	ids, err := b.Agents(ctx)
	if err != nil {
		return err
	}

	payloads := make(map[AgentID][]byte, len(ids))
	for _, id := range ids {
		if excluded(id, exclude) {
			continue
		}
		data, err := b.codec.Encode(msg.addressedTo(id))
		if err != nil {
			return err
		}
		payloads[id] = data
	}

	if len(payloads) == 0 {
		return nil
	}

	_, err = b.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, data := range payloads {
			pipe.RPush(ctx, MailboxKey(b.instanceName, id), data)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to broadcast message: %w", err)
	}
	return nil
}

// Agents returns the registered ids in sorted order.
func (b *RedisBus) Agents(ctx context.Context) ([]AgentID, error) {
	members, err := b.rdb.SMembers(ctx, AgentsKey(b.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read registered agents: %w", err)
	}

	ids := make([]AgentID, 0, len(members))
	for _, m := range members {
		ids = append(ids, AgentID(m))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Pending returns the length of id's list.
func (b *RedisBus) Pending(ctx context.Context, id AgentID) (int, error) {
	if err := b.ensureRegistered(ctx, id); err != nil {
		return 0, err
	}
	n, err := b.rdb.LLen(ctx, MailboxKey(b.instanceName, id)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read mailbox length for %s: %w", id, err)
	}
	return int(n), nil
}

func (b *RedisBus) ensureRegistered(ctx context.Context, id AgentID) error {
	ok, err := b.rdb.SIsMember(ctx, AgentsKey(b.instanceName), string(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check registration of %s: %w", id, err)
	}
	if !ok {
		return ErrUnknownRecipient
	}
	return nil
}

// wholeSeconds rounds d up to a whole number of seconds.
func wholeSeconds(d time.Duration) time.Duration {
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}
