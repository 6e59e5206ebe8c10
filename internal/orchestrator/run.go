package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/pagesmith/internal/agents"
	"github.com/dyluth/pagesmith/internal/fsm"
	"github.com/dyluth/pagesmith/internal/output"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"go.uber.org/zap"
)

// run is the state of one RunPipeline call.
type run struct {
	orch           *Orchestrator
	conversationID string
	machine        *fsm.Machine
	data           WorkflowData
	outputs        map[string]string
	reason         string
	logger         *zap.Logger
}

// registerActions wires one request per working state, plus the completion broadcast.
func (r *run) registerActions() {
	r.machine.RegisterAction(fsm.StateParsingData, func(ctx context.Context) error {
		return r.request(ctx, agents.ParserID, protocol.ParseDataRequest{Data: r.data.Input})
	})
	r.machine.RegisterAction(fsm.StateGeneratingQuestions, func(ctx context.Context) error {
		// The generator learns the product from the parser's broadcast
		return r.request(ctx, agents.QuestionGeneratorID, protocol.GenerateQuestionsRequest{})
	})
	r.machine.RegisterAction(fsm.StateGeneratingFAQ, func(ctx context.Context) error {
		return r.request(ctx, agents.FAQGeneratorID, protocol.GenerateFAQRequest{
			Product:   r.data.Product,
			Questions: r.data.Questions,
		})
	})
	r.machine.RegisterAction(fsm.StateGeneratingProductPage, func(ctx context.Context) error {
		return r.request(ctx, agents.ProductPageGeneratorID, protocol.GenerateProductPageRequest{Product: r.data.Product})
	})
	r.machine.RegisterAction(fsm.StateGeneratingComparison, func(ctx context.Context) error {
		return r.request(ctx, agents.ComparisonGeneratorID, protocol.GenerateComparisonRequest{Product: r.data.Product})
	})
	r.machine.RegisterAction(fsm.StateCompleted, func(ctx context.Context) error {
		msg := bus.NewMessage(ID, bus.Everyone, bus.TypeComplete,
			protocol.PipelineComplete{State: string(fsm.StateCompleted)}, r.conversationID)
		return r.orch.bus.Broadcast(ctx, msg, ID)
	})
}

func (r *run) request(ctx context.Context, to bus.AgentID, payload bus.Payload) error {
	r.logger.Info("Sending request",
		zap.String("to", string(to)),
		zap.String("kind", payload.Kind()))
	return r.orch.bus.Send(ctx, bus.NewMessage(ID, to, bus.TypeRequest, payload, r.conversationID))
}

// coordinate polls the orchestrator mailbox until the machine is terminal.
func (r *run) coordinate(ctx context.Context) {
	opts := r.orch.opts

	for !r.machine.IsTerminal() {
		if err := ctx.Err(); err != nil {
			r.fail(ctx, fmt.Sprintf("run aborted: %v", err))
			return
		}

		msg, ok, err := r.orch.bus.Receive(ctx, ID, opts.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if de, isDecodeErr := bus.AsDecodeError(err); isDecodeErr && de.Msg.ConversationID != r.conversationID {
				r.logger.Warn("Ignoring undecodable message from another conversation",
					zap.String("sender", string(de.Msg.Sender)),
					zap.String("foreign_conversation_id", de.Msg.ConversationID),
					zap.String("kind", de.Kind))
				continue
			}
			r.fail(ctx, fmt.Sprintf("failed to receive: %v", err))
			return
		}
		if ok {
			r.handle(ctx, msg)
		}

		if r.machine.IsTerminal() {
			return
		}
		r.sleep(ctx, opts.PollInterval)
	}
}

func (r *run) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// handle dispatches one message by type, sender and payload.
func (r *run) handle(ctx context.Context, msg bus.Message) {
	if msg.ConversationID != r.conversationID {
		r.logger.Debug("Ignoring message from another conversation",
			zap.String("sender", string(msg.Sender)),
			zap.String("foreign_conversation_id", msg.ConversationID))
		return
	}

	switch msg.Type {
	case bus.TypeResponse:
		r.handleResponse(ctx, msg)
	case bus.TypeQuery:
		r.handleQuery(ctx, msg)
	case bus.TypeError:
		reason := "unknown error"
		if f, ok := msg.Content.(protocol.Failure); ok {
			reason = f.Error
		}
		r.fail(ctx, fmt.Sprintf("%s: %s", msg.Sender, reason))
	default:
		r.logger.Debug("Ignoring message",
			zap.String("type", string(msg.Type)),
			zap.String("sender", string(msg.Sender)))
	}
}

func (r *run) handleResponse(ctx context.Context, msg bus.Message) {
	switch res := msg.Content.(type) {
	case protocol.ParsedProduct:
		if !r.expect(msg, agents.ParserID, fsm.StateParsingData) {
			return
		}
		p := res.Product
		r.data.Product = &p
		r.logger.Info("Received parsed product", zap.String("product", p.Name))
		r.advance(ctx, fsm.EventDataParsed)

	case protocol.GeneratedQuestions:
		if !r.expect(msg, agents.QuestionGeneratorID, fsm.StateGeneratingQuestions) {
			return
		}
		r.data.Questions = res.Questions
		r.logger.Info("Received questions", zap.Int("count", res.Count))
		r.advance(ctx, fsm.EventQuestionsGenerated)

	case protocol.FAQPageResult:
		if !r.expect(msg, agents.FAQGeneratorID, fsm.StateGeneratingFAQ) {
			return
		}
		page := res.Page
		r.data.FAQPage = &page
		if r.persist(ctx, output.FAQFile, page) {
			r.advance(ctx, fsm.EventFAQGenerated)
		}

	case protocol.ProductPageResult:
		if !r.expect(msg, agents.ProductPageGeneratorID, fsm.StateGeneratingProductPage) {
			return
		}
		page := res.Page
		r.data.ProductPage = &page
		if r.persist(ctx, output.ProductPageFile, page) {
			r.advance(ctx, fsm.EventProductPageGenerated)
		}

	case protocol.ComparisonPageResult:
		if !r.expect(msg, agents.ComparisonGeneratorID, fsm.StateGeneratingComparison) {
			return
		}
		page := res.Page
		r.data.ComparisonPage = &page
		if r.persist(ctx, output.ComparisonPageFile, page) {
			r.advance(ctx, fsm.EventComparisonGenerated)
		}

	default:
		r.logger.Warn("Ignoring unexpected response",
			zap.String("sender", string(msg.Sender)),
			zap.String("kind", msg.Kind()))
	}
}

// handleQuery answers a worker that asked for the product by repeating its
// request with the product attached.
func (r *run) handleQuery(ctx context.Context, msg bus.Message) {
	if _, ok := msg.Content.(protocol.NeedProductData); !ok {
		r.logger.Debug("Ignoring query", zap.String("kind", msg.Kind()))
		return
	}
	if msg.Sender != agents.QuestionGeneratorID || r.machine.Current() != fsm.StateGeneratingQuestions {
		r.logger.Warn("Ignoring product query out of turn", zap.String("sender", string(msg.Sender)))
		return
	}
	if r.data.Product == nil {
		r.fail(ctx, "product data requested before it was parsed")
		return
	}

	r.logger.Info("Resending question request with product data")
	if err := r.request(ctx, agents.QuestionGeneratorID, protocol.GenerateQuestionsRequest{Product: r.data.Product}); err != nil {
		r.fail(ctx, fmt.Sprintf("failed to answer product query: %v", err))
	}
}

// expect reports whether msg comes from the worker that owns the current state.
func (r *run) expect(msg bus.Message, sender bus.AgentID, state fsm.State) bool {
	if msg.Sender != sender {
		r.logger.Warn("Ignoring response from unexpected sender",
			zap.String("sender", string(msg.Sender)),
			zap.String("expected", string(sender)),
			zap.String("kind", msg.Kind()))
		return false
	}
	if current := r.machine.Current(); current != state {
		r.logger.Warn("Ignoring response out of turn",
			zap.String("sender", string(msg.Sender)),
			zap.String("state", string(current)),
			zap.String("expected_state", string(state)))
		return false
	}
	return true
}

func (r *run) persist(ctx context.Context, name string, page any) bool {
	path, err := r.orch.writer.Write(name, page)
	if err != nil {
		r.fail(ctx, fmt.Sprintf("failed to persist %s: %v", name, err))
		return false
	}
	r.outputs[name] = path
	r.logger.Info("Saved page", zap.String("path", path))
	return true
}

// advance triggers ev; a failing entry action ends the run.
func (r *run) advance(ctx context.Context, ev fsm.Event) {
	ok, err := r.machine.Trigger(ctx, ev)
	if !ok {
		return
	}
	if err == nil {
		return
	}

	state := r.machine.Current()
	if state == fsm.StateCompleted {
		// Every page is already on disk
		r.logger.Warn("Completion broadcast failed", zap.Error(err))
		return
	}
	r.fail(ctx, fmt.Sprintf("entering %s: %v", state, err))
}

// fail records the first reason and forces ERROR.
func (r *run) fail(ctx context.Context, reason string) {
	if r.reason == "" {
		r.reason = reason
	}
	if err := r.machine.Fail(ctx, reason); err != nil {
		r.logger.Error("ERROR entry action failed", zap.Error(err))
	}
}

func (r *run) result() *Result {
	outputs := make(map[string]string, len(r.outputs))
	for k, v := range r.outputs {
		outputs[k] = v
	}
	return &Result{
		ConversationID: r.conversationID,
		State:          r.machine.Current(),
		History:        r.machine.History(),
		Data:           r.data,
		Outputs:        outputs,
		Reason:         r.reason,
	}
}
