// Package fsm implements the pipeline state machine used by the orchestrator.
//
// The machine is a pure sequencer: it knows the legal (state, event) pairs and
// runs at most one entry action per state. It holds no business data.
package fsm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is a pipeline phase.
type State string

const (
	StateIdle                  State = "IDLE"
	StateParsingData           State = "PARSING_DATA"
	StateGeneratingQuestions   State = "GENERATING_QUESTIONS"
	StateGeneratingFAQ         State = "GENERATING_FAQ"
	StateGeneratingProductPage State = "GENERATING_PRODUCT_PAGE"
	StateGeneratingComparison  State = "GENERATING_COMPARISON"
	StateCompleted             State = "COMPLETED"
	StateError                 State = "ERROR"
)

// IsTerminal reports whether no further transitions can leave s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateError
}

// Event triggers a transition.
type Event string

const (
	EventStartPipeline        Event = "START_PIPELINE"
	EventDataParsed           Event = "DATA_PARSED"
	EventQuestionsGenerated   Event = "QUESTIONS_GENERATED"
	EventFAQGenerated         Event = "FAQ_GENERATED"
	EventProductPageGenerated Event = "PRODUCT_PAGE_GENERATED"
	EventComparisonGenerated  Event = "COMPARISON_GENERATED"
	EventErrorOccurred        Event = "ERROR_OCCURRED"
)

// Action is an entry action run when its state is entered.
type Action func(ctx context.Context) error

type key struct {
	from  State
	event Event
}

// transitions is the single linear path from IDLE to COMPLETED.
// ERROR is entered only through Fail.
var transitions = map[key]State{
	{StateIdle, EventStartPipeline}:                         StateParsingData,
	{StateParsingData, EventDataParsed}:                     StateGeneratingQuestions,
	{StateGeneratingQuestions, EventQuestionsGenerated}:     StateGeneratingFAQ,
	{StateGeneratingFAQ, EventFAQGenerated}:                 StateGeneratingProductPage,
	{StateGeneratingProductPage, EventProductPageGenerated}: StateGeneratingComparison,
	{StateGeneratingComparison, EventComparisonGenerated}:   StateCompleted,
}

// Transition records one state change.
type Transition struct {
	From  State
	Event Event
	To    State
	At    time.Time
}

// Machine is safe for concurrent use. Entry actions run on the caller's
// goroutine after the lock has been released, so an action may inspect the
// machine but should not call Trigger.
type Machine struct {
	mu      sync.Mutex
	current State
	actions map[State]Action
	history []Transition
	logger  *zap.Logger
}

// New returns a machine in IDLE.
func New(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		current: StateIdle,
		actions: make(map[State]Action),
		logger:  logger.Named("fsm"),
	}
}

// RegisterAction sets the entry action for state, replacing any previous one.
func (m *Machine) RegisterAction(state State, action Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[state] = action
}

// Trigger applies event to the current state.
// It returns false if the pair is not in the table; the state is then unchanged.
// On a legal transition the target's entry action runs before Trigger returns
// and its error is passed through.
func (m *Machine) Trigger(ctx context.Context, event Event) (bool, error) {
	m.mu.Lock()
	from := m.current
	to, ok := transitions[key{from, event}]
	if !ok {
		m.mu.Unlock()
		m.logger.Warn("Invalid transition refused",
			zap.String("state", string(from)),
			zap.String("event", string(event)))
		return false, nil
	}

	m.current = to
	m.history = append(m.history, Transition{From: from, Event: event, To: to, At: time.Now()})
	action := m.actions[to]
	m.mu.Unlock()

	m.logger.Info("State transition",
		zap.String("from", string(from)),
		zap.String("event", string(event)),
		zap.String("to", string(to)))

	if action == nil {
		return true, nil
	}
	return true, action(ctx)
}

// Fail forces the machine into ERROR from any state and runs ERROR's entry
// action, if one is registered. Failing an already terminal machine is a no-op.
func (m *Machine) Fail(ctx context.Context, reason string) error {
	m.mu.Lock()
	from := m.current
	if from.IsTerminal() {
		m.mu.Unlock()
		return nil
	}
	m.current = StateError
	m.history = append(m.history, Transition{From: from, Event: EventErrorOccurred, To: StateError, At: time.Now()})
	action := m.actions[StateError]
	m.mu.Unlock()

	m.logger.Error("Pipeline failed",
		zap.String("from", string(from)),
		zap.String("reason", reason))

	if action == nil {
		return nil
	}
	return action(ctx)
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsTerminal reports whether the machine is in COMPLETED or ERROR.
func (m *Machine) IsTerminal() bool {
	return m.Current().IsTerminal()
}

// History returns a copy of the transitions taken so far, oldest first.
func (m *Machine) History() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// Transitions returns a copy of the transition table.
func Transitions() map[State]map[Event]State {
	out := make(map[State]map[Event]State)
	for k, to := range transitions {
		if out[k.from] == nil {
			out[k.from] = make(map[Event]State)
		}
		out[k.from][k.event] = to
	}
	return out
}

// Path returns the events that lead from IDLE to COMPLETED, in order.
func Path() []Event {
	return []Event{
		EventStartPipeline,
		EventDataParsed,
		EventQuestionsGenerated,
		EventFAQGenerated,
		EventProductPageGenerated,
		EventComparisonGenerated,
	}
}
