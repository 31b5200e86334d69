// Package reporting serializes scenario results. TAPWriter produces the
// machine-readable stream on stdout; SummaryTable renders a human summary.
package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/acarl005/stripansi"

	"github.com/sandarsh/moq-interop-runner/types"
)

const (
	// TAPVersion is the protocol version announced in the stream header.
	TAPVersion = 14

	blockIndent = "  "
)

// TAPWriter streams results in TAP form. Every record is flushed as soon as
// it is written so a crash truncates the stream without reordering it.
type TAPWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

// NewTAPWriter creates a new TAPWriter writing to w.
func NewTAPWriter(w io.Writer) *TAPWriter {
	return &TAPWriter{w: bufio.NewWriter(w)}
}

// Header emits the preamble and the plan line for count results.
func (t *TAPWriter) Header(name, version, relay string, count int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.w, "TAP version %d\n", TAPVersion)
	fmt.Fprintf(t.w, "# %s %s\n", name, version)
	fmt.Fprintf(t.w, "# Relay: %s\n", relay)
	fmt.Fprintf(t.w, "1..%d\n", count)
	return t.w.Flush()
}

// Report emits the result of test point n (1-based).
func (t *TAPWriter) Report(n int, r *types.TestResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch r.Status {
	case types.TestStatusSkip:
		fmt.Fprintf(t.w, "ok %d - %s # SKIP %s\n", n, r.Scenario, singleLine(r.SkipReason))
	case types.TestStatusPass:
		fmt.Fprintf(t.w, "ok %d - %s\n", n, r.Scenario)
		t.openBlock(r)
		for _, k := range r.Diagnostics.Keys() {
			t.field(k, r.Diagnostics[k])
		}
		t.closeBlock()
	case types.TestStatusFail:
		fmt.Fprintf(t.w, "not ok %d - %s\n", n, r.Scenario)
		t.openBlock(r)
		t.field("message", Quote(r.Message()))
		t.closeBlock()
	default:
		return fmt.Errorf("unknown test status %q for %s", r.Status, r.Scenario)
	}
	return t.w.Flush()
}

func (t *TAPWriter) openBlock(r *types.TestResult) {
	t.w.WriteString(blockIndent + "---\n")
	t.field("duration_ms", fmt.Sprintf("%d", r.Duration.Milliseconds()))
}

func (t *TAPWriter) field(key, value string) {
	fmt.Fprintf(t.w, "%s%s: %s\n", blockIndent, key, value)
}

func (t *TAPWriter) closeBlock() {
	t.w.WriteString(blockIndent + "...\n")
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// Quote renders msg as a single-line, double-quoted YAML scalar with terminal
// escape sequences removed.
func Quote(msg string) string {
	return `"` + quoteReplacer.Replace(stripansi.Strip(msg)) + `"`
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(stripansi.Strip(s)), " ")
}
