package orchestrator

import (
	"encoding/json"

	"github.com/dyluth/pagesmith/internal/content"
	"github.com/dyluth/pagesmith/internal/fsm"
)

// WorkflowData accumulates everything a run has learned so far.
// Only the orchestrator goroutine reads or writes it.
type WorkflowData struct {
	Input          json.RawMessage
	Product        *content.Product
	Questions      []content.Question
	FAQPage        *content.FAQPage
	ProductPage    *content.ProductPage
	ComparisonPage *content.ComparisonPage
}

// Result describes a finished run.
type Result struct {
	ConversationID string
	State          fsm.State
	History        []fsm.Transition
	Data           WorkflowData

	// Outputs maps page file names to the paths they were written to
	Outputs map[string]string

	// Reason is set when State is ERROR
	Reason string
}
