// Package sensors defines the pluggable context-contributor abstraction
// spec.md §6 names as the optional ActivitySensor contract, generalized
// slightly so the orchestrator can gather from any number of sensors during
// step 3 of the pipeline (spec.md §4.9).
package sensors

import "context"

// Sensor contributes a short context string to the Think stage's input.
// Implementations must not block significantly; the orchestrator calls
// GetContext synchronously as part of context gathering.
type Sensor interface {
	GetContext(ctx context.Context) string
}
