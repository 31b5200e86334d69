package interop

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/sandarsh/moq-interop-runner/flags"
	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/registry"
	"github.com/sandarsh/moq-interop-runner/scenarios"
)

// Config holds the application configuration
type Config struct {
	Relay            *url.URL      // Nil in list mode
	Scenario         string        // Single scenario to run, empty for the whole catalogue
	List             bool          // Print scenario names and exit
	TLSDisableVerify bool          // Skip relay certificate verification
	Verbose          bool          // Debug logging
	ScenarioConfig   string        // Path to the scenario overrides file, if any
	Registry         *registry.Registry
	Timings          scenarios.Timings
	RunInterval      time.Duration // Interval between runs
	RunOnce          bool          // Exit after one run
	Summary          bool          // Print a summary table to Stderr after each run
	LogDir           string        // Per-run results directory, empty to disable
	Pushgateway      string        // Prometheus Pushgateway URL, empty to disable
	Metrics          opmetrics.CLIConfig
	Transports       map[string]moq.Transport // Session transports keyed by URL scheme
	Stdout           io.Writer                // Report stream
	Stderr           io.Writer                // Human-facing output
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}

	// List mode and the scenario name are settled before anything else is
	// validated: listing never needs a relay, and an unknown test is reported
	// as such whatever else is wrong with the invocation.
	list := ctx.Bool(flags.List.Name)
	scenario := ctx.String(flags.Test.Name)
	reg := registry.Default()

	var (
		relay *url.URL
		err   error
	)
	if !list {
		// Overrides never add or rename scenarios, so the built-in catalogue decides.
		if _, err := reg.Select(scenario); err != nil {
			return nil, err
		}
		relay, err = ParseRelayURL(ctx.String(flags.Relay.Name))
		if err != nil {
			return nil, err
		}
	}

	scenarioConfig := ctx.String(flags.ScenarioConfig.Name)
	if scenarioConfig != "" {
		scenarioConfig, err = filepath.Abs(scenarioConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for scenario config '%s': %w", ctx.String(flags.ScenarioConfig.Name), err)
		}
		overrides, err := registry.LoadOverrides(scenarioConfig)
		if err != nil {
			return nil, err
		}
		reg, err = reg.WithOverrides(overrides)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario config '%s': %w", scenarioConfig, err)
		}
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval must not be negative, got %v", runInterval)
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", ctx.String(flags.LogDir.Name), err)
		}
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		Relay:            relay,
		Scenario:         scenario,
		List:             list,
		TLSDisableVerify: ctx.Bool(flags.TLSDisableVerify.Name),
		Verbose:          ctx.Bool(flags.Verbose.Name),
		ScenarioConfig:   scenarioConfig,
		Registry:         reg,
		Timings:          scenarios.DefaultTimings(),
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		Summary:          ctx.Bool(flags.Summary.Name),
		LogDir:           logDir,
		Pushgateway:      ctx.String(flags.Pushgateway.Name),
		Metrics:          metricsCfg,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
		Log:              log,
	}, nil
}

// ParseRelayURL parses and validates a relay URL. The scheme selects the
// session transport, so it is required.
func ParseRelayURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("relay URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL '%s': %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid relay URL '%s': scheme and host are required", raw)
	}
	return u, nil
}
