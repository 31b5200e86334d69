package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandarsh/moq-interop-runner/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("timeout after 2000ms: \"x\""),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordErrorDetails(t *testing.T) {
	before := testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error"))
	RecordErrorDetails("test", nil)
	RecordErrorDetails("test", errors.New("sample error"))
	assert.Equal(t, before+1, testutil.ToFloat64(errorsTotal.WithLabelValues("test.sample_error")))
}

func TestRecordScenario(t *testing.T) {
	relay := "mem://metrics-test"
	RecordScenario(relay, "setup-only", types.TestStatusPass, false, 250*time.Millisecond)
	RecordScenario(relay, "announce-only", types.TestStatusFail, true, 2*time.Second)
	RecordScenario(relay, "subscribe-error", types.TestStatusSkip, false, 0)
	RecordScenario(relay, "bogus", "unknown", false, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(scenarioResultsTotal.WithLabelValues(relay, "setup-only", "pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(scenarioResultsTotal.WithLabelValues(relay, "announce-only", "fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(scenarioTimeoutsTotal.WithLabelValues(relay, "announce-only")))
	assert.Equal(t, 0.25, testutil.ToFloat64(scenarioDuration.WithLabelValues(relay, "setup-only")))
	assert.Equal(t, 0.0, testutil.ToFloat64(scenarioResultsTotal.WithLabelValues(relay, "bogus", "unknown")))
}

func TestRecordScenarioFailure(t *testing.T) {
	relay := "mem://failure-kinds"
	RecordScenarioFailure(relay, "setup-only", "connect")
	RecordScenarioFailure(relay, "setup-only", "connect")
	RecordScenarioFailure(relay, "announce-subscribe", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(scenarioFailuresTotal.WithLabelValues(relay, "setup-only", "connect")))
	assert.Equal(t, 1.0, testutil.ToFloat64(scenarioFailuresTotal.WithLabelValues(relay, "announce-subscribe", "other")))
}

func TestRecordRun(t *testing.T) {
	relay := "mem://run-test"
	RecordRun(relay, "run1", "pass", 6, 4, 0, 2, time.Second)
	RecordRun(relay, "run2", "fail", 6, 3, 1, 2, time.Second)

	assert.Equal(t, 6.0, testutil.ToFloat64(runScenariosTotal.WithLabelValues(relay, "run1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(runScenariosFailed.WithLabelValues(relay, "run2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(runResults.WithLabelValues(relay, "run2", "fail")))
}

func TestPush(t *testing.T) {
	var pushes atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pushes.Add(1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, Push(context.Background(), srv.URL, "moq-interop"))
	assert.Equal(t, int32(1), pushes.Load())
	assert.True(t, strings.HasSuffix(path.Load().(string), "/job/moq-interop"))
}

func TestPushDisabled(t *testing.T) {
	require.NoError(t, Push(context.Background(), "", "moq-interop"))
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Push(context.Background(), srv.URL, "moq-interop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to push metrics")
}
