package metrics

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/sandarsh/moq-interop-runner/types"
)

const (
	MetricsNamespace = "moq_interop"
)

var (
	Debug                bool = false
	validResults              = []types.TestStatus{types.TestStatusPass, types.TestStatusFail, types.TestStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	scenarioResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "scenario_results_total",
		Help:      "Count of scenario outcomes",
	}, []string{
		"relay",
		"scenario",
		"result",
	})

	scenarioTimeoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "scenario_timeouts_total",
		Help:      "Count of scenarios that exceeded their deadline",
	}, []string{
		"relay",
		"scenario",
	})

	scenarioFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "scenario_failures_total",
		Help:      "Count of scenario failures by failure class",
	}, []string{
		"relay",
		"scenario",
		"kind",
	})

	scenarioDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "scenario_duration_seconds",
		Help:      "Duration of the last run of a scenario",
	}, []string{
		"relay",
		"scenario",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of interop runs",
	}, []string{
		"relay",
		"run_id",
		"result",
	})

	runScenariosTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_scenarios_total",
		Help:      "Total number of scenarios in a run",
	}, []string{
		"relay",
		"run_id",
	})

	runScenariosPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_scenarios_passed",
		Help:      "Number of passed scenarios in a run",
	}, []string{
		"relay",
		"run_id",
	})

	runScenariosFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_scenarios_failed",
		Help:      "Number of failed scenarios in a run",
	}, []string{
		"relay",
		"run_id",
	})

	runScenariosSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_scenarios_skipped",
		Help:      "Number of skipped scenarios in a run",
	}, []string{
		"relay",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of interop runs",
	}, []string{
		"relay",
		"run_id",
	})

	lastRunTimestamp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time of the last completed run",
	}, []string{
		"relay",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordScenario records the outcome of a single scenario. Skipped scenarios
// never ran, so no duration is recorded for them.
func RecordScenario(relay string, scenario string, result types.TestStatus, timedOut bool, duration time.Duration) {
	if !isValidResult(result) {
		log.Error("RecordScenario - invalid result", "result", result)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "scenario_results_total",
			"relay", relay,
			"scenario", scenario,
			"result", result)
	}
	scenarioResultsTotal.WithLabelValues(relay, scenario, string(result)).Inc()
	if timedOut {
		scenarioTimeoutsTotal.WithLabelValues(relay, scenario).Inc()
	}
	if result != types.TestStatusSkip {
		scenarioDuration.WithLabelValues(relay, scenario).Set(duration.Seconds())
	}
}

// RecordScenarioFailure counts a failed scenario under its failure class.
func RecordScenarioFailure(relay string, scenario string, kind string) {
	if kind == "" {
		kind = "other"
	}
	scenarioFailuresTotal.WithLabelValues(relay, scenario, kind).Inc()
}

func RecordRun(
	relay string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	skipped int,
	duration time.Duration,
) {
	runResults.WithLabelValues(relay, runID, result).Set(1)
	runScenariosTotal.WithLabelValues(relay, runID).Add(float64(total))
	runScenariosPassed.WithLabelValues(relay, runID).Add(float64(passed))
	runScenariosFailed.WithLabelValues(relay, runID).Add(float64(failed))
	runScenariosSkipped.WithLabelValues(relay, runID).Add(float64(skipped))
	runDuration.WithLabelValues(relay, runID).Set(duration.Seconds())
	lastRunTimestamp.WithLabelValues(relay).SetToCurrentTime()
}

// Push sends the current state of the default registry to a Prometheus
// Pushgateway under job.
func Push(ctx context.Context, gatewayURL string, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		RecordErrorDetails("pushgateway", err)
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

func isValidResult(result types.TestStatus) bool {
	return slices.Contains(validResults, result)
}
