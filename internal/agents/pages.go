package agents

import (
	"context"
	"math/rand"
	"time"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

// FAQGenerator answers the question bank from the product data.
type FAQGenerator struct {
	memory productMemory
	logger *zap.Logger
}

func NewFAQGenerator(logger *zap.Logger) *FAQGenerator {
	return &FAQGenerator{logger: logger.Named(string(FAQGeneratorID))}
}

func (g *FAQGenerator) Handle(ctx context.Context, msg bus.Message, out *agent.Outbox) error {
	if g.memory.observe(msg) {
		return nil
	}

	req, ok := msg.Content.(protocol.GenerateFAQRequest)
	if !ok {
		return nil
	}

	product, ok := g.memory.resolve(msg, req.Product)
	if !ok {
		return ErrMissingProduct
	}

	page, err := content.BuildFAQPage(product, req.Questions)
	if err != nil {
		return err
	}

	g.logger.Info("Generated FAQ page", zap.Int("questions", page.TotalQuestions))
	return reply(ctx, out, msg, protocol.FAQPageResult{Page: page, Status: protocol.StatusSuccess})
}

// ProductPageGenerator assembles the product page.
type ProductPageGenerator struct {
	memory productMemory
	logger *zap.Logger
}

func NewProductPageGenerator(logger *zap.Logger) *ProductPageGenerator {
	return &ProductPageGenerator{logger: logger.Named(string(ProductPageGeneratorID))}
}

func (g *ProductPageGenerator) Handle(ctx context.Context, msg bus.Message, out *agent.Outbox) error {
	if g.memory.observe(msg) {
		return nil
	}

	req, ok := msg.Content.(protocol.GenerateProductPageRequest)
	if !ok {
		return nil
	}

	product, ok := g.memory.resolve(msg, req.Product)
	if !ok {
		return ErrMissingProduct
	}

	page := content.BuildProductPage(product)
	g.logger.Info("Generated product page", zap.String("product", product.Name))
	return reply(ctx, out, msg, protocol.ProductPageResult{Page: page, Status: protocol.StatusSuccess})
}

// ComparisonGenerator compares the product with a fictional competitor.
type ComparisonGenerator struct {
	memory productMemory
	rng    *rand.Rand
	logger *zap.Logger
}

// NewComparisonGenerator uses rng to price the competitor. A nil rng is seeded from the clock.
func NewComparisonGenerator(rng *rand.Rand, logger *zap.Logger) *ComparisonGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &ComparisonGenerator{rng: rng, logger: logger.Named(string(ComparisonGeneratorID))}
}

func (g *ComparisonGenerator) Handle(ctx context.Context, msg bus.Message, out *agent.Outbox) error {
	if g.memory.observe(msg) {
		return nil
	}

	req, ok := msg.Content.(protocol.GenerateComparisonRequest)
	if !ok {
		return nil
	}

	product, ok := g.memory.resolve(msg, req.Product)
	if !ok {
		return ErrMissingProduct
	}

	competitor := content.Competitor(g.rng)
	page := content.BuildComparisonPage(product, competitor)

	g.logger.Info("Generated comparison page",
		zap.String("competitor", competitor.Name),
		zap.Int("competitor_price", competitor.Price),
		zap.String("winner", page.WinnerAnalysis.Winner))
	return reply(ctx, out, msg, protocol.ComparisonPageResult{Page: page, Status: protocol.StatusSuccess})
}
