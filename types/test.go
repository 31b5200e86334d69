// Package types contains shared types used across the interop harness
package types

import (
	"time"
)

// TestStatus represents the possible states of a scenario execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
)

// TestResult captures the outcome of a single scenario run
type TestResult struct {
	Scenario    string
	Status      TestStatus
	Error       error         // Set when Status is TestStatusFail
	SkipReason  string        // Set when Status is TestStatusSkip
	Duration    time.Duration // Zero for skipped scenarios
	Diagnostics Diagnostics   // Only meaningful for passed scenarios
	TimedOut    bool
	FailureKind string // Coarse failure class, set by the runner for failed scenarios
}

// NewPassedResult returns a passing result carrying the diagnostics of the run.
func NewPassedResult(scenario string, diag Diagnostics, duration time.Duration) *TestResult {
	if diag == nil {
		diag = Diagnostics{}
	}
	return &TestResult{
		Scenario:    scenario,
		Status:      TestStatusPass,
		Diagnostics: diag,
		Duration:    duration,
	}
}

// NewFailedResult returns a failing result for err.
func NewFailedResult(scenario string, err error, duration time.Duration) *TestResult {
	return &TestResult{
		Scenario: scenario,
		Status:   TestStatusFail,
		Error:    err,
		Duration: duration,
	}
}

// NewSkippedResult returns a skipped result. Skipped scenarios never run, so
// their duration is always zero.
func NewSkippedResult(scenario string, reason string) *TestResult {
	return &TestResult{
		Scenario:   scenario,
		Status:     TestStatusSkip,
		SkipReason: reason,
	}
}

// Message returns the failure message, or an empty string when the result did not fail.
func (r *TestResult) Message() string {
	if r.Status != TestStatusFail || r.Error == nil {
		return ""
	}
	return r.Error.Error()
}
