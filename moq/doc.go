// Package moq defines the narrow session capability the interop harness drives:
// a Client that opens Sessions to a relay through a scheme-specific Transport,
// and the Origin / Broadcast / Track model that sessions publish and consume.
//
// The model is transport agnostic. A Transport maps it onto a wire protocol;
// the memrelay sub-package provides an in-process implementation.
package moq
