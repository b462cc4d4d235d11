package health

import (
	"errors"
	"strings"
)

var (
	// ErrCheckFailed is matched by every NotReadyError.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is the Result.Error of a check that outlived the
	// aggregator's timeout.
	ErrCheckTimeout = errors.New("health: check timeout")

	ErrCheckerNotFound = errors.New("health: checker not found")
)

// NotReadyError is returned by Aggregator.Ready and names the checks that
// reported unhealthy, in sorted order.
type NotReadyError struct {
	Checks []string
}

func (e *NotReadyError) Error() string {
	return ErrCheckFailed.Error() + ": " + strings.Join(e.Checks, ", ")
}

func (e *NotReadyError) Is(target error) bool { return target == ErrCheckFailed }
