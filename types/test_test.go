package types

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResultConstructors(t *testing.T) {
	pass := NewPassedResult("setup-only", nil, 15*time.Millisecond)
	assert.Equal(t, TestStatusPass, pass.Status)
	assert.NotNil(t, pass.Diagnostics)
	assert.Empty(t, pass.Message())

	fail := NewFailedResult("announce-only", errors.New("failed to connect: refused"), time.Second)
	assert.Equal(t, TestStatusFail, fail.Status)
	assert.Equal(t, "failed to connect: refused", fail.Message())
	assert.False(t, fail.TimedOut)

	skip := NewSkippedResult("subscribe-error", "not supported")
	assert.Equal(t, TestStatusSkip, skip.Status)
	assert.Equal(t, "not supported", skip.SkipReason)
	assert.Zero(t, skip.Duration)
	assert.Empty(t, skip.Message())
}

func TestDiagnosticsSetIgnoresEmpty(t *testing.T) {
	d := Diagnostics{}
	d.Set(DiagConnectionID, "")
	assert.Empty(t, d)
	d.Set(DiagConnectionID, "abc")
	assert.Equal(t, "abc", d[DiagConnectionID])
}

func TestDiagnosticsKeysOrder(t *testing.T) {
	d := Diagnostics{}
	d.Set("zeta", "1")
	d.Set(DiagSubscriberConnectionID, "s")
	d.Set("alpha", "2")
	d.Set(DiagPublisherConnectionID, "p")

	assert.Equal(t, []string{DiagPublisherConnectionID, DiagSubscriberConnectionID, "alpha", "zeta"}, d.Keys())
	assert.Empty(t, Diagnostics{}.Keys())
}
