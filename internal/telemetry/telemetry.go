// Package telemetry normalizes raw hive snapshots into dashboard updates and
// classifies the current reading against the threshold table.
package telemetry

import (
	"errors"
	"fmt"

	"github.com/ntentasd/colmena-telemetry/internal/state"
)

// HistoryLimit is the size of the history window.
const HistoryLimit = 50

// Sink receives the updates produced by the ingestors.
type Sink interface {
	Apply(u state.Update) bool
}

var ErrValidation = errors.New("validation error")

// ValidationError explains why a single historic entry was excluded.
type ValidationError struct {
	Key    string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entry %q: %s %s", e.Key, e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
