package reporting

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sandarsh/moq-interop-runner/types"
)

const (
	RunDirectoryPrefix = "testrun-"
	TAPFilename        = "results.tap"
	JSONFilename       = "results.json"
)

// RunRecord is everything persisted about a finished run.
type RunRecord struct {
	RunID   string
	Name    string
	Version string
	Relay   string
	Status  types.TestStatus
	Started time.Time
	Totals  Totals
	Results []*types.TestResult
}

type jsonResult struct {
	Scenario    string            `json:"scenario"`
	Status      types.TestStatus  `json:"status"`
	DurationMS  int64             `json:"duration_ms"`
	TimedOut    bool              `json:"timed_out,omitempty"`
	FailureKind string            `json:"failure_kind,omitempty"`
	Message     string            `json:"message,omitempty"`
	SkipReason  string            `json:"skip_reason,omitempty"`
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

type jsonRun struct {
	RunID      string           `json:"run_id"`
	Client     string           `json:"client"`
	Version    string           `json:"version"`
	Relay      string           `json:"relay"`
	Status     types.TestStatus `json:"status"`
	Started    time.Time        `json:"started"`
	DurationMS int64            `json:"duration_ms"`
	Total      int              `json:"total"`
	Passed     int              `json:"passed"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
	Results    []jsonResult     `json:"results"`
}

// RunDirectory returns the directory a run with runID is written to.
func RunDirectory(baseDir, runID string) string {
	return filepath.Join(baseDir, RunDirectoryPrefix+runID)
}

// WriteRunDirectory persists rec under baseDir: the TAP stream exactly as it was
// reported and a JSON summary. It returns the run directory.
func WriteRunDirectory(baseDir string, rec RunRecord) (string, error) {
	if rec.RunID == "" {
		return "", errors.New("run ID is required")
	}
	dir := RunDirectory(baseDir, rec.RunID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}

	if err := writeTAPFile(filepath.Join(dir, TAPFilename), rec); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(toJSONRun(rec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, JSONFilename), append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("failed to write run summary: %w", err)
	}
	return dir, nil
}

func writeTAPFile(path string, rec RunRecord) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create TAP file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close TAP file: %w", cerr)
		}
	}()

	w := NewTAPWriter(f)
	if err := w.Header(rec.Name, rec.Version, rec.Relay, len(rec.Results)); err != nil {
		return err
	}
	for i, r := range rec.Results {
		if err := w.Report(i+1, r); err != nil {
			return err
		}
	}
	return nil
}

func toJSONRun(rec RunRecord) jsonRun {
	run := jsonRun{
		RunID:      rec.RunID,
		Client:     rec.Name,
		Version:    rec.Version,
		Relay:      rec.Relay,
		Status:     rec.Status,
		Started:    rec.Started.UTC(),
		DurationMS: rec.Totals.Duration.Milliseconds(),
		Total:      rec.Totals.Total,
		Passed:     rec.Totals.Passed,
		Failed:     rec.Totals.Failed,
		Skipped:    rec.Totals.Skipped,
		Results:    make([]jsonResult, 0, len(rec.Results)),
	}
	for _, r := range rec.Results {
		jr := jsonResult{
			Scenario:    r.Scenario,
			Status:      r.Status,
			DurationMS:  r.Duration.Milliseconds(),
			TimedOut:    r.TimedOut,
			FailureKind: r.FailureKind,
			Message:     r.Message(),
			SkipReason:  r.SkipReason,
		}
		if r.Status == types.TestStatusPass && len(r.Diagnostics) > 0 {
			jr.Diagnostics = r.Diagnostics
		}
		run.Results = append(run.Results, jr)
	}
	return run
}
