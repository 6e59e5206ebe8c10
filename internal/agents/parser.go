package agents

import (
	"context"
	"fmt"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

// Parser decodes and validates raw product data.
type Parser struct {
	logger *zap.Logger
}

func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named(string(ParserID))}
}

// Handle serves ParseDataRequest. A valid product is broadcast to the other
// workers before the response goes back, so that every worker already knows
// the product when its own request arrives.
func (p *Parser) Handle(ctx context.Context, msg bus.Message, out *agent.Outbox) error {
	if msg.Type != bus.TypeRequest {
		return nil
	}

	req, ok := msg.Content.(protocol.ParseDataRequest)
	if !ok {
		return nil
	}

	product, err := content.DecodeProduct(req.Data)
	if err != nil {
		p.logger.Warn("Rejected product data", zap.Error(err))
		return err
	}
	p.logger.Info("Parsed product", zap.String("product", product.Name))

	event := protocol.ProductParsed{Product: product}
	if err := out.Broadcast(ctx, bus.TypeInform, event, msg.ConversationID, msg.ReplyAddress()); err != nil {
		return fmt.Errorf("failed to broadcast parsed product: %w", err)
	}

	return reply(ctx, out, msg, protocol.ParsedProduct{Product: product, Status: protocol.StatusSuccess})
}
