// Package protocol defines the payloads exchanged between the orchestrator and
// the worker agents. Each payload is a value type implementing bus.Payload;
// receivers match on the concrete type and ignore anything they do not know.
package protocol

import (
	"encoding/json"

	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/pkg/bus"
)

// StatusSuccess is the status carried by every successful result.
const StatusSuccess = "success"

// Requests

// ParseDataRequest asks the parser to decode and validate raw product JSON.
type ParseDataRequest struct {
	Data json.RawMessage `json:"data"`
}

func (ParseDataRequest) Kind() string { return "parse_data" }

// GenerateQuestionsRequest asks for the question bank. Product may be nil, in
// which case the generator falls back to a product it has already seen.
type GenerateQuestionsRequest struct {
	Product *content.Product `json:"product,omitempty"`
}

func (GenerateQuestionsRequest) Kind() string { return "generate_questions" }

type GenerateFAQRequest struct {
	Product   *content.Product   `json:"product,omitempty"`
	Questions []content.Question `json:"questions"`
}

func (GenerateFAQRequest) Kind() string { return "generate_faq" }

type GenerateProductPageRequest struct {
	Product *content.Product `json:"product,omitempty"`
}

func (GenerateProductPageRequest) Kind() string { return "generate_product_page" }

type GenerateComparisonRequest struct {
	Product *content.Product `json:"product,omitempty"`
}

func (GenerateComparisonRequest) Kind() string { return "generate_comparison" }

// Responses

type ParsedProduct struct {
	Product content.Product `json:"product"`
	Status  string          `json:"status"`
}

func (ParsedProduct) Kind() string { return "product_parsed_result" }

type GeneratedQuestions struct {
	Questions []content.Question `json:"questions"`
	Count     int                `json:"count"`
	Status    string             `json:"status"`
}

func (GeneratedQuestions) Kind() string { return "questions_result" }

type FAQPageResult struct {
	Page   content.FAQPage `json:"faq_page"`
	Status string          `json:"status"`
}

func (FAQPageResult) Kind() string { return "faq_page_result" }

type ProductPageResult struct {
	Page   content.ProductPage `json:"product_page"`
	Status string              `json:"status"`
}

func (ProductPageResult) Kind() string { return "product_page_result" }

type ComparisonPageResult struct {
	Page   content.ComparisonPage `json:"comparison_page"`
	Status string                 `json:"status"`
}

func (ComparisonPageResult) Kind() string { return "comparison_page_result" }

// Events

// ProductParsed is broadcast by the parser once a product has been validated.
type ProductParsed struct {
	Product content.Product `json:"product"`
}

func (ProductParsed) Kind() string { return "product_parsed" }

// NeedProductData is a query from an agent that was asked to work without a product.
type NeedProductData struct{}

func (NeedProductData) Kind() string { return "need_product_data" }

// Failure is the payload of every ERROR message.
type Failure struct {
	Error string `json:"error"`
}

func (Failure) Kind() string { return "failure" }

// PipelineComplete is broadcast when a run reaches its terminal state.
type PipelineComplete struct {
	State string `json:"state"`
}

func (PipelineComplete) Kind() string { return "pipeline_complete" }

// Codec returns a bus codec that can decode every payload in this package.
func Codec() *bus.Codec {
	c := bus.NewCodec()
	bus.Register[ParseDataRequest](c)
	bus.Register[GenerateQuestionsRequest](c)
	bus.Register[GenerateFAQRequest](c)
	bus.Register[GenerateProductPageRequest](c)
	bus.Register[GenerateComparisonRequest](c)
	bus.Register[ParsedProduct](c)
	bus.Register[GeneratedQuestions](c)
	bus.Register[FAQPageResult](c)
	bus.Register[ProductPageResult](c)
	bus.Register[ComparisonPageResult](c)
	bus.Register[ProductParsed](c)
	bus.Register[NeedProductData](c)
	bus.Register[Failure](c)
	bus.Register[PipelineComplete](c)
	return c
}
