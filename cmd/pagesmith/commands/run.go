package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/dyluth/pagesmith/internal/agent"
	"github.com/dyluth/pagesmith/internal/config"
	"github.com/dyluth/pagesmith/internal/logging"
	"github.com/dyluth/pagesmith/internal/orchestrator"
	"github.com/dyluth/pagesmith/internal/output"
	"github.com/dyluth/pagesmith/internal/printer"
	"github.com/dyluth/pagesmith/internal/protocol"
	"github.com/dyluth/pagesmith/pkg/bus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runOptions struct {
	configPath string
	input      string
	outputDir  string
	busDriver  string
	redisURL   string
	logLevel   string
}

func runPipeline(cmd *cobra.Command, opts *runOptions) error {
	p := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return p.Error(
			"Invalid configuration",
			err.Error(),
			[]string{"Check pagesmith.yml and the command-line flags"},
		)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return p.Error("Failed to create logger", err.Error(), nil)
	}
	defer func() { _ = logger.Sync() }()

	raw, err := os.ReadFile(cfg.Input)
	if err != nil {
		return p.ErrorWithContext(
			"Failed to read product data",
			err.Error(),
			map[string]string{"input": cfg.Input},
			[]string{"Pass the product JSON with --input <path>"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBus(ctx, cfg.Bus, logger)
	if err != nil {
		return p.ErrorWithContext(
			"Failed to open message bus",
			err.Error(),
			map[string]string{"driver": cfg.Bus.Driver, "redis_url": cfg.Bus.RedisURL},
			[]string{"Check that Redis is running and reachable", "Use --bus memory to run without Redis"},
		)
	}
	defer b.Close()

	orch := orchestrator.New(b, output.NewFileWriter(cfg.OutputDir), logger, orchestrator.Options{
		PollTimeout:  cfg.Timing.OrchestratorPollTimeout,
		PollInterval: cfg.Timing.PollInterval,
		RunTimeout:   cfg.Timing.RunTimeout,
		Agent: agent.Options{
			PollTimeout: cfg.Timing.AgentPollTimeout,
			StopTimeout: cfg.Timing.StopTimeout,
		},
	})

	p.Step("Running pipeline on %s (%s bus)\n", cfg.Input, cfg.Bus.Driver)
	result, err := orch.RunPipeline(ctx, raw)
	if err != nil {
		details := map[string]string{"input": cfg.Input}
		if result != nil {
			details["state"] = string(result.State)
			details["conversation_id"] = result.ConversationID
		}
		explanation := err.Error()
		if errors.Is(err, orchestrator.ErrPipelineFailed) && result != nil {
			explanation = result.Reason
		}
		return p.ErrorWithContext("Pipeline failed", explanation, details, nil)
	}

	names := make([]string, 0, len(result.Outputs))
	for name := range result.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p.Info("  %s\n", result.Outputs[name])
	}
	p.Success("Generated %d pages for %s\n", len(result.Outputs), result.Data.Product.Name)
	return nil
}

// loadConfig reads the config file and applies flag overrides on top.
// An explicit --config must exist; the default path is optional.
func loadConfig(cmd *cobra.Command, opts *runOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadOptional(config.DefaultPath)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = opts.input
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("bus") {
		cfg.Bus.Driver = opts.busDriver
	}
	if flags.Changed("redis-url") {
		cfg.Bus.RedisURL = opts.redisURL
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openBus creates the configured bus driver. The redis driver is pinged before use.
func openBus(ctx context.Context, cfg config.BusConfig, logger *zap.Logger) (bus.Bus, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return bus.NewMemoryBus(logger), nil
	case config.DriverRedis:
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rb, err := bus.NewRedisBus(redisOpts, cfg.Instance, protocol.Codec(), logger)
		if err != nil {
			return nil, err
		}
		if err := rb.Ping(ctx); err != nil {
			rb.Close()
			return nil, fmt.Errorf("redis not accessible: %w", err)
		}
		return rb, nil
	default:
		return nil, fmt.Errorf("unknown bus driver %q", cfg.Driver)
	}
}
