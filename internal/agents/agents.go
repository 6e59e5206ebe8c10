// Package agents contains the five worker agents of the page pipeline.
//
// Each worker is an agent.Handler. Workers match on the concrete payload type
// and silently ignore anything they do not recognise.
package agents

import (
	"context"
	"errors"
	"math/rand"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

// Mailbox ids of the workers.
const (
	ParserID               bus.AgentID = "data_parser"
	QuestionGeneratorID    bus.AgentID = "question_generator"
	FAQGeneratorID         bus.AgentID = "faq_generator"
	ProductPageGeneratorID bus.AgentID = "product_page_generator"
	ComparisonGeneratorID  bus.AgentID = "comparison_generator"
)

// ErrMissingProduct is returned when a worker is asked for a page before it has a product.
var ErrMissingProduct = errors.New("missing product data")

// Worker pairs a mailbox id with the handler that serves it.
type Worker struct {
	ID      bus.AgentID
	Handler agent.Handler
}

// Roster returns the five workers in pipeline order.
func Roster(rng *rand.Rand, logger *zap.Logger) []Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return []Worker{
		{ParserID, NewParser(logger)},
		{QuestionGeneratorID, NewQuestionGenerator(logger)},
		{FAQGeneratorID, NewFAQGenerator(logger)},
		{ProductPageGeneratorID, NewProductPageGenerator(logger)},
		{ComparisonGeneratorID, NewComparisonGenerator(rng, logger)},
	}
}

// productMemory keeps the last product a worker was told about, together with
// the conversation it belongs to. Handlers run on a single goroutine, so no
// locking is needed.
type productMemory struct {
	product        *content.Product
	conversationID string
}

// observe updates the memory from broadcast events. It reports whether msg was consumed.
// A completion only clears the product of its own conversation.
func (m *productMemory) observe(msg bus.Message) bool {
	switch ev := msg.Content.(type) {
	case protocol.ProductParsed:
		m.remember(ev.Product, msg.ConversationID)
		return true
	case protocol.PipelineComplete:
		if msg.ConversationID == m.conversationID {
			m.product = nil
			m.conversationID = ""
		}
		return true
	default:
		return false
	}
}

// resolve prefers the product carried by a request over the remembered one.
// A remembered product is only used for requests of the same conversation.
func (m *productMemory) resolve(req bus.Message, fromRequest *content.Product) (content.Product, bool) {
	if fromRequest != nil {
		m.remember(*fromRequest, req.ConversationID)
		return *m.product, true
	}
	if m.product != nil && m.conversationID == req.ConversationID {
		return *m.product, true
	}
	return content.Product{}, false
}

func (m *productMemory) remember(p content.Product, conversationID string) {
	c := p.Clone()
	m.product = &c
	m.conversationID = conversationID
}

func reply(ctx context.Context, out *agent.Outbox, req bus.Message, payload bus.Payload) error {
	return out.Reply(ctx, req, bus.TypeResponse, payload)
}
