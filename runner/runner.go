package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sandarsh/moq-interop-runner/metrics"
	"github.com/sandarsh/moq-interop-runner/registry"
	"github.com/sandarsh/moq-interop-runner/scenarios"
	"github.com/sandarsh/moq-interop-runner/supervise"
	"github.com/sandarsh/moq-interop-runner/types"
)

// Reporter receives the header and then one result per selected scenario.
type Reporter interface {
	Header(name, version, relay string, count int) error
	Report(n int, result *types.TestResult) error
}

// RunnerResult captures the complete run
type RunnerResult struct {
	Results  []*types.TestResult
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
	RunID    string
}

// ResultStats tracks run statistics
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	TimedOut  int
	StartTime time.Time
	EndTime   time.Time
}

// TestRunner defines the interface for running interop scenarios
type TestRunner interface {
	RunAllTests(ctx context.Context) (*RunnerResult, error)
	RunTest(ctx context.Context, scenario registry.Scenario) (*types.TestResult, error)
	Selected() []registry.Scenario
}

// runner struct implements TestRunner interface
type runner struct {
	registry *registry.Registry
	selected []registry.Scenario
	bodies   map[string]scenarios.Func
	env      scenarios.Env
	reporter Reporter
	name     string
	version  string
	log      log.Logger
	tracer   trace.Tracer
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry  *registry.Registry
	Scenario  string                    // run only this scenario; empty runs the whole catalogue
	Scenarios map[string]scenarios.Func // scenario bodies, defaults to scenarios.All()
	Env       scenarios.Env
	Reporter  Reporter
	Name      string // reported in the stream header
	Version   string
	Log       log.Logger
}

// NewTestRunner creates a new test runner instance. Scenario selection
// happens here, so an unknown scenario name is reported before anything is
// written to the Reporter.
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if cfg.Env.Client == nil {
		return nil, errors.New("session client is required")
	}
	if cfg.Env.Relay == nil {
		return nil, errors.New("relay URL is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Env.Log == nil {
		cfg.Env.Log = cfg.Log
	}
	if cfg.Scenarios == nil {
		cfg.Scenarios = scenarios.All()
	}

	selected, err := cfg.Registry.Select(cfg.Scenario)
	if err != nil {
		return nil, err
	}
	for _, s := range selected {
		if _, skipped := cfg.Registry.SkipReason(s.Name); skipped {
			continue
		}
		if cfg.Scenarios[s.Name] == nil {
			return nil, fmt.Errorf("no implementation for scenario %q", s.Name)
		}
	}

	cfg.Log.Debug("NewTestRunner()", "scenario", cfg.Scenario, "selected", len(selected),
		"relay", cfg.Env.Relay.String())

	return &runner{
		registry: cfg.Registry,
		selected: selected,
		bodies:   cfg.Scenarios,
		env:      cfg.Env,
		reporter: cfg.Reporter,
		name:     cfg.Name,
		version:  cfg.Version,
		log:      cfg.Log,
		tracer:   otel.Tracer("interop runner"),
	}, nil
}

// Selected returns the scenarios a run will report on, in order.
func (r *runner) Selected() []registry.Scenario {
	out := make([]registry.Scenario, len(r.selected))
	copy(out, r.selected)
	return out
}

// RunAllTests implements the TestRunner interface. The returned error is
// reserved for failures of the harness itself; scenario failures are carried
// in the result.
func (r *runner) RunAllTests(ctx context.Context) (*RunnerResult, error) {
	runID := uuid.New().String()
	start := time.Now()
	relay := r.env.Relay.String()
	r.log.Debug("Running all tests", "run_id", runID, "count", len(r.selected))

	ctx, span := r.tracer.Start(ctx, "interop run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("relay", relay),
	))
	defer span.End()

	result := &RunnerResult{
		Results: make([]*types.TestResult, 0, len(r.selected)),
		Stats:   ResultStats{StartTime: start},
		RunID:   runID,
	}

	if err := r.reporter.Header(r.name, r.version, relay, len(r.selected)); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	for i, s := range r.selected {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted before %s: %w", s.Name, err)
		}

		test, err := r.RunTest(ctx, s)
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", s.Name, err)
		}
		// Results of scenarios cut short by shutdown are not reported.
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run interrupted during %s: %w", s.Name, err)
		}

		if err := r.reporter.Report(i+1, test); err != nil {
			return nil, fmt.Errorf("failed to write result for %s: %w", s.Name, err)
		}
		result.Results = append(result.Results, test)
		result.updateStats(test)
		metrics.RecordScenario(relay, s.Name, test.Status, test.TimedOut, test.Duration)
		if test.Status == types.TestStatusFail {
			metrics.RecordScenarioFailure(relay, s.Name, test.FailureKind)
		}
	}

	result.Duration = time.Since(start)
	result.Status = determineRunnerStatus(result)
	result.Stats.EndTime = time.Now()
	span.SetAttributes(attribute.String("status", string(result.Status)))
	return result, nil
}

// RunTest runs a single scenario under its deadline, or reports it skipped.
func (r *runner) RunTest(ctx context.Context, s registry.Scenario) (*types.TestResult, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("scenario %s", s.Name))
	defer span.End()

	if reason, skipped := r.registry.SkipReason(s.Name); skipped {
		r.log.Info("Skipping scenario", "scenario", s.Name, "reason", reason)
		span.SetAttributes(attribute.String("status", string(types.TestStatusSkip)))
		return types.NewSkippedResult(s.Name, reason), nil
	}

	body, ok := r.bodies[s.Name]
	if !ok || body == nil {
		return nil, fmt.Errorf("no implementation for scenario %q", s.Name)
	}

	r.log.Info("Running scenario", "scenario", s.Name, "timeout", s.Timeout)
	start := time.Now()
	diag, err := supervise.WithTimeout(ctx, s.Timeout, func(ctx context.Context) (types.Diagnostics, error) {
		return body(ctx, r.env)
	})
	duration := time.Since(start)

	if err != nil {
		test := types.NewFailedResult(s.Name, err, duration)
		test.TimedOut = supervise.IsTimeout(err)
		test.FailureKind = scenarios.ClassifyFailure(err)
		r.log.Warn("Scenario failed", "scenario", s.Name, "duration", duration, "kind", test.FailureKind, "err", err)
		span.SetAttributes(attribute.String("failure_kind", test.FailureKind))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return test, nil
	}

	r.log.Info("Scenario passed", "scenario", s.Name, "duration", duration)
	span.SetAttributes(attribute.String("status", string(types.TestStatusPass)))
	return types.NewPassedResult(s.Name, diag, duration), nil
}

// updateStats updates the run statistics with a single result
func (r *RunnerResult) updateStats(test *types.TestResult) {
	r.Stats.Total++
	switch test.Status {
	case types.TestStatusPass:
		r.Stats.Passed++
	case types.TestStatusFail:
		r.Stats.Failed++
	case types.TestStatusSkip:
		r.Stats.Skipped++
	}
	if test.TimedOut {
		r.Stats.TimedOut++
	}
}

// Failures returns the failed results in run order.
func (r *RunnerResult) Failures() []*types.TestResult {
	var failed []*types.TestResult
	for _, t := range r.Results {
		if t.Status == types.TestStatusFail {
			failed = append(failed, t)
		}
	}
	return failed
}

// String returns a one-paragraph summary of the run
func (r *RunnerResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interop Run Results (%.1fs): Total: %d, Passed: %d, Failed: %d, Skipped: %d",
		r.Duration.Seconds(), r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped)
	for _, t := range r.Failures() {
		fmt.Fprintf(&b, "\n└── %s: %s", t.Scenario, t.Message())
	}
	return b.String()
}

// determineRunnerStatus is the logical AND of all non-skipped outcomes. A run
// in which every scenario was skipped is reported as skipped.
func determineRunnerStatus(result *RunnerResult) types.TestStatus {
	if result.Stats.Failed > 0 {
		return types.TestStatusFail
	}
	if result.Stats.Passed == 0 {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}
