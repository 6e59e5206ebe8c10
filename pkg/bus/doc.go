// Package bus provides the message bus that pagesmith agents use to talk to
// each other.
//
// # Overview
//
// Every participant (the orchestrator and each worker agent) is identified by
// an AgentID and owns exactly one mailbox on the bus. A mailbox is an
// unbounded FIFO queue with a single consumer: messages sent to the same
// mailbox are received in send order, and there is no ordering guarantee
// across different mailboxes.
//
// The bus supports three operations beyond registration:
//
//   - Send delivers a message to the mailbox named by its Receiver field.
//     Sending to an id that was never registered fails with ErrUnknownRecipient.
//   - Receive blocks for up to a timeout waiting for the next message. An
//     expired timeout is reported as ok=false, never as an error.
//   - Broadcast delivers an independent copy of a message to every registered
//     id that is not excluded.
//
// # Drivers
//
// MemoryBus keeps mailboxes in process memory and is the default driver.
// RedisBus stores each mailbox as a Redis list so that the same contract can be
// served from a shared Redis server:
//
//	Mailbox:      pagesmith:{instance}:mailbox:{agent_id}   (LIST)
//	Registration: pagesmith:{instance}:agents               (SET)
//
// Message content is a tagged variant (see Payload). The Redis driver needs a
// Codec that knows every payload kind it may have to decode.
//
// # Usage Example
//
//	b := bus.NewMemoryBus(logger)
//	_ = b.Register(ctx, "orchestrator")
//	_ = b.Register(ctx, "data_parser")
//
//	msg := bus.NewMessage("orchestrator", "data_parser", bus.TypeRequest, req, conversationID)
//	if err := b.Send(ctx, msg); err != nil {
//		return err
//	}
//
//	reply, ok, err := b.Receive(ctx, "orchestrator", time.Second)
package bus
