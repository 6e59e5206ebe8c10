// Package orchestrator drives the page pipeline: it starts the worker agents,
// sequences them with the pipeline state machine and persists the pages they
// produce.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/agents"
	"github.com/dyluth/pagesmith/internal/fsm"
	"github.com/dyluth/pagesmith/internal/output"
	"github.com/dyluth/pagesmith/pkg/bus"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ID is the orchestrator's own mailbox.
const ID bus.AgentID = "orchestrator"

const (
	DefaultPollTimeout  = time.Second
	DefaultPollInterval = 100 * time.Millisecond
	DefaultRunTimeout   = 2 * time.Minute
)

// ErrPipelineFailed wraps the reason a run ended in ERROR.
var ErrPipelineFailed = errors.New("pipeline failed")

// Options tunes the coordination loop. Zero values select the defaults.
type Options struct {
	// PollTimeout bounds each receive on the orchestrator's mailbox
	PollTimeout time.Duration

	// PollInterval is the pause between two receives
	PollInterval time.Duration

	// RunTimeout bounds a whole run; negative disables the bound
	RunTimeout time.Duration

	// Agent is passed to every worker's run loop
	Agent agent.Options

	// Rand prices the comparison competitor; nil seeds from the clock
	Rand *rand.Rand
}

func (o Options) withDefaults() Options {
	if o.PollTimeout <= 0 {
		o.PollTimeout = DefaultPollTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.RunTimeout == 0 {
		o.RunTimeout = DefaultRunTimeout
	}
	return o
}

// Orchestrator drives one pipeline run at a time over a bus.
type Orchestrator struct {
	bus    bus.Bus
	writer output.Writer
	logger *zap.Logger
	opts   Options

	// serialises runs; they share the orchestrator mailbox
	mu sync.Mutex
}

// New creates an orchestrator. The bus and writer are owned by the caller.
func New(b bus.Bus, w output.Writer, logger *zap.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	if opts.Agent.Logger == nil {
		opts.Agent.Logger = logger
	}
	return &Orchestrator{
		bus:    b,
		writer: w,
		logger: logger.Named("orchestrator"),
		opts:   opts,
	}
}

// RunPipeline turns raw product JSON into the three pages.
//
// It starts the five workers, walks the state machine from IDLE to a terminal
// state and stops the workers again, whatever the outcome. Pages are written
// as soon as they arrive, so a failed run keeps the pages produced before the
// failure. On ERROR the returned error wraps ErrPipelineFailed; the Result is
// returned in both cases once the run has started.
func (o *Orchestrator) RunPipeline(ctx context.Context, raw json.RawMessage) (*Result, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r := &run{
		orch:           o,
		conversationID: uuid.New().String(),
		machine:        fsm.New(o.logger),
		outputs:        make(map[string]string),
		data:           WorkflowData{Input: raw},
	}
	r.logger = o.logger.With(zap.String("conversation_id", r.conversationID))

	if err := o.bus.Register(ctx, ID); err != nil {
		return nil, fmt.Errorf("failed to register orchestrator: %w", err)
	}

	workers, err := o.startAgents(ctx)
	if err != nil {
		return nil, err
	}
	defer o.stopAgents(workers)

	runCtx := ctx
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	r.logger.Info("Starting pipeline")
	r.registerActions()
	r.advance(runCtx, fsm.EventStartPipeline)
	r.coordinate(runCtx)

	result := r.result()
	if result.State == fsm.StateError {
		return result, fmt.Errorf("%w: %s", ErrPipelineFailed, r.reason)
	}

	r.logger.Info("Pipeline completed", zap.Int("pages", len(result.Outputs)))
	return result, nil
}

// startAgents starts every worker concurrently. If any fails to start the
// others are stopped again.
func (o *Orchestrator) startAgents(ctx context.Context) ([]*agent.Agent, error) {
	roster := agents.Roster(o.opts.Rand, o.logger)
	workers := make([]*agent.Agent, len(roster))
	for i, w := range roster {
		workers[i] = agent.New(w.ID, o.bus, w.Handler, o.opts.Agent)
	}

	// The loops outlive Start, so they get ctx rather than a group context
	var g errgroup.Group
	for _, a := range workers {
		a := a
		g.Go(func() error {
			return a.Start(ctx)
		})
	}
	if err := g.Wait(); err != nil {
		o.stopAgents(workers)
		return nil, fmt.Errorf("failed to start agents: %w", err)
	}

	return workers, nil
}

// stopAgents stops every worker concurrently and logs any that overran.
func (o *Orchestrator) stopAgents(workers []*agent.Agent) {
	var g errgroup.Group
	for _, a := range workers {
		a := a
		g.Go(a.Stop)
	}
	if err := g.Wait(); err != nil {
		o.logger.Warn("Agent shutdown incomplete", zap.Error(err))
	}
}
