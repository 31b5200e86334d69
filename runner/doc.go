// Package runner drives an interop run: it selects scenarios from the
// registry, applies the skip policy, runs each remaining scenario under its
// deadline and streams every result to a Reporter in registry order.
//
// Scenarios run strictly one after another so that relay-side state left by
// one scenario never overlaps with the next.
package runner
