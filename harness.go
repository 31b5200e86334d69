// Package interop runs the interop scenario catalogue against a relay and
// reports the results as a TAP stream.
package interop

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/sandarsh/moq-interop-runner/exitcodes"
	"github.com/sandarsh/moq-interop-runner/metrics"
	"github.com/sandarsh/moq-interop-runner/moq"
	"github.com/sandarsh/moq-interop-runner/reporting"
	"github.com/sandarsh/moq-interop-runner/runner"
	"github.com/sandarsh/moq-interop-runner/scenarios"
	"github.com/sandarsh/moq-interop-runner/service"
	"github.com/sandarsh/moq-interop-runner/types"
)

// AppName is the name reported in the stream header.
const AppName = "moq-interop-client"

// pushJob is the Pushgateway job name.
const pushJob = "moq-interop"

// Harness implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Harness{}

// Harness runs the selected scenarios once, or periodically in continuous mode.
type Harness struct {
	ctx      context.Context
	config   *Config
	version  string
	runner   runner.TestRunner // nil in list mode
	result   *runner.RunnerResult
	metrics  MetricsReporter
	service  *service.Service
	resultMu sync.Mutex

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates the harness. In list mode no session client is built. An
// unknown scenario name is rejected here, before any output is produced.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Registry == nil {
		return nil, errors.New("config has no scenario registry")
	}
	if config.Stdout == nil {
		config.Stdout = os.Stdout
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}

	config.Log.Debug("Creating harness with config",
		"relay", config.Relay,
		"scenario", config.Scenario,
		"list", config.List,
		"scenarioConfig", config.ScenarioConfig,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	h := &Harness{
		ctx:              ctx,
		config:           config,
		version:          version,
		metrics:          NewDefaultMetricsReporter(),
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}
	if config.List {
		return h, nil
	}

	client, err := moq.NewClient(moq.ClientConfig{
		TLSDisableVerify: config.TLSDisableVerify,
		Transports:       config.Transports,
		Log:              config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session client: %w", err)
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Registry: config.Registry,
		Scenario: config.Scenario,
		Env: scenarios.Env{
			Client:  client,
			Relay:   config.Relay,
			Timings: config.Timings,
			Log:     config.Log,
		},
		Reporter: reporting.NewTAPWriter(config.Stdout),
		Name:     AppName,
		Version:  version,
		Log:      config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create test runner: %w", err)
	}
	h.runner = testRunner
	config.Log.Info("interop.New: created session client and test runner", "schemes", client.Schemes())

	if !config.RunOnce && config.Metrics.Enabled {
		h.service = service.New(service.Config{
			MetricsHost: config.Metrics.ListenAddr,
			MetricsPort: config.Metrics.ListenPort,
			Log:         config.Log,
		})
	}
	return h, nil
}

// Start implements the cliapp.Lifecycle interface.
func (h *Harness) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	h.ctx = ctx
	h.done = make(chan struct{})
	h.running.Store(true)

	if h.config.List {
		for _, name := range h.config.Registry.Names() {
			fmt.Fprintln(h.config.Stdout, name)
		}
		go func() {
			h.shutdownCallback(nil)
		}()
		return nil
	}

	if h.config.RunOnce {
		h.config.Log.Info("Starting interop run", "relay", h.config.Relay)
	} else {
		h.config.Log.Info("Starting interop runs in continuous mode", "relay", h.config.Relay, "interval", h.config.RunInterval)
		if h.service != nil {
			h.service.Start(ctx)
		}
	}

	// Run immediately on startup
	if err := h.runTests(); err != nil {
		h.config.Log.Error("Runtime error running scenarios", "error", err)
		return err
	}

	if h.config.RunOnce {
		h.config.Log.Info("Run completed, exiting (run-once mode)")
		if result := h.Result(); result != nil && result.Status == types.TestStatusFail {
			h.config.Log.Warn("Run completed with failures, returning exit code 1")
			return NewTestFailureError(result.String())
		}
		go func() {
			h.shutdownCallback(nil)
		}()
		return nil
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.config.Log.Debug("Starting periodic runner goroutine", "interval", h.config.RunInterval)

		timer := time.NewTimer(h.config.RunInterval)
		defer timer.Stop()
		for {
			select {
			case <-timer.C:
				if !h.running.Load() {
					h.config.Log.Debug("Service stopped, exiting periodic runner")
					return
				}
				h.config.Log.Info("Running periodic interop run")
				if err := h.runTests(); err != nil {
					h.config.Log.Error("Error running periodic interop run", "error", err)
				}
				timer.Reset(h.config.RunInterval)

			case <-h.done:
				h.config.Log.Debug("Done signal received, stopping periodic runner")
				return

			case <-ctx.Done():
				h.config.Log.Debug("Context canceled, stopping periodic runner")
				h.running.Store(false)
				return
			}
		}
	}()
	h.config.Log.Debug("interop harness started successfully")
	return nil
}

// runTests runs the selected scenarios and processes the results
func (h *Harness) runTests() error {
	result, err := h.runner.RunAllTests(h.ctx)
	if err != nil {
		metrics.RecordErrorDetails("run", err)
		return NewRuntimeError(err)
	}
	h.resultMu.Lock()
	h.result = result
	h.resultMu.Unlock()

	relay := h.config.Relay.String()
	h.metrics.ReportResults(relay, result)
	if h.service != nil {
		h.service.Healthz.SetLastRunStatus(string(result.Status))
	}

	totals := reporting.Totals{
		Total:    result.Stats.Total,
		Passed:   result.Stats.Passed,
		Failed:   result.Stats.Failed,
		Skipped:  result.Stats.Skipped,
		Duration: result.Duration,
	}
	if h.config.Summary {
		reporting.SummaryTable(h.config.Stderr,
			fmt.Sprintf("MoQ Interop Results: %s", relay),
			result.Results,
			totals)
	}

	if h.config.LogDir != "" {
		dir, err := reporting.WriteRunDirectory(h.config.LogDir, reporting.RunRecord{
			RunID:   result.RunID,
			Name:    AppName,
			Version: h.version,
			Relay:   relay,
			Status:  result.Status,
			Started: result.Stats.StartTime,
			Totals:  totals,
			Results: result.Results,
		})
		if err != nil {
			// The report on stdout is authoritative; a missing copy does not fail the run.
			h.config.Log.Error("Failed to write run directory", "err", err)
		} else {
			h.config.Log.Info("Wrote run results", "dir", dir)
		}
	}

	if err := metrics.Push(h.ctx, h.config.Pushgateway, pushJob); err != nil {
		h.config.Log.Warn("Failed to push metrics", "err", err)
	}

	h.config.Log.Info("Interop run completed", "run_id", result.RunID, "status", result.Status,
		"passed", result.Stats.Passed, "failed", result.Stats.Failed, "skipped", result.Stats.Skipped)
	return nil
}

// Result returns the result of the most recent run.
func (h *Harness) Result() *runner.RunnerResult {
	h.resultMu.Lock()
	defer h.resultMu.Unlock()
	return h.result
}

// Stop implements the cliapp.Lifecycle interface.
func (h *Harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping interop harness")

	if !h.running.Load() {
		h.config.Log.Debug("Harness already stopped, nothing to do")
		return nil
	}
	h.running.Store(false)

	h.config.Log.Debug("Sending done signal to goroutines")
	close(h.done)
	h.wg.Wait()

	if h.service != nil {
		h.service.Shutdown()
	}

	h.config.Log.Info("interop harness stopped successfully")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (h *Harness) Stopped() bool {
	return !h.running.Load()
}
