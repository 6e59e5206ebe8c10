package agents

import (
	"context"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

// QuestionGenerator builds the categorised question bank.
type QuestionGenerator struct {
	memory productMemory
	logger *zap.Logger
}

func NewQuestionGenerator(logger *zap.Logger) *QuestionGenerator {
	return &QuestionGenerator{logger: logger.Named(string(QuestionGeneratorID))}
}

// Handle serves GenerateQuestionsRequest. Without a product it asks the
// requester for one with a NeedProductData query instead of failing.
func (g *QuestionGenerator) Handle(ctx context.Context, msg bus.Message, out *agent.Outbox) error {
	if g.memory.observe(msg) {
		return nil
	}

	switch req := msg.Content.(type) {
	case protocol.GenerateQuestionsRequest:
		product, ok := g.memory.resolve(msg, req.Product)
		if !ok {
			g.logger.Info("No product data yet, querying requester",
				zap.String("requester", string(msg.ReplyAddress())))
			return out.Reply(ctx, msg, bus.TypeQuery, protocol.NeedProductData{})
		}

		questions := content.GenerateQuestions(product)
		g.logger.Info("Generated questions", zap.Int("count", len(questions)))
		return reply(ctx, out, msg, protocol.GeneratedQuestions{
			Questions: questions,
			Count:     len(questions),
			Status:    protocol.StatusSuccess,
		})
	default:
		return nil
	}
}
