// Package exitcodes defines the standard exit codes used by the interop client.
package exitcodes

// Exit code constants used by the interop client
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all selected, non-skipped scenarios pass
// * TestFailure (1): Used when one or more scenarios fail
// * RuntimeErr (2): Used for runtime errors such as an invalid relay URL or config file
// * UnknownScenario (127): Used when the requested scenario is not registered
const (
	Success         = 0   // All scenarios pass
	TestFailure     = 1   // Scenario failures
	RuntimeErr      = 2   // Runtime or configuration errors
	UnknownScenario = 127 // Requested scenario does not exist
)
