package registry

import (
	"errors"
	"fmt"
	"strings"
)

// UnknownScenarioError is returned when a requested scenario is not registered.
// It is a user input error, distinct from any protocol failure.
type UnknownScenarioError struct {
	Name  string
	Known []string
}

func (e *UnknownScenarioError) Error() string {
	return fmt.Sprintf("unknown test: %s (available: %s)", e.Name, strings.Join(e.Known, ", "))
}

// IsUnknownScenario checks if the error is or wraps an UnknownScenarioError
func IsUnknownScenario(err error) bool {
	var unknown *UnknownScenarioError
	return err != nil && errors.As(err, &unknown)
}
