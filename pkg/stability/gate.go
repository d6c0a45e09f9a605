// Package stability turns a noisy stream of classifier results into ready
// events and filters repeated announcements.
package stability

import (
	"time"

	"github.com/teslashibe/go-pointdex/pkg/inference"
)

// NoLabel is the label index for "nothing observed yet" and for labels the
// label table does not know.
const NoLabel = -1

// State is the gate's counter state.
type State struct {
	LastLabelIndex   int `json:"last_label_index"`
	ConsecutiveCount int `json:"consecutive_count"`
}

// ReadyEvent is emitted when a label is confident and stable enough to
// present.
type ReadyEvent struct {
	Label        string    `json:"label"`
	LabelIndex   int       `json:"label_index"`
	Confidence   float64   `json:"confidence"`
	ServerStable bool      `json:"server_stable"`
	Timestamp    time.Time `json:"timestamp"`
}

// Gate counts consecutive observations of the same label index.
//
// Indices are compared for equality only, so two unknown labels in a row
// (both NoLabel) count as a repeat. Gate is not safe for concurrent use; it
// belongs to a single loop.
type Gate struct {
	config Config
	state  State
}

// NewGate creates a gate with no observations.
func NewGate(config Config) *Gate {
	if config.StableN < 1 {
		config.StableN = 1
	}
	return &Gate{
		config: config,
		state:  State{LastLabelIndex: NoLabel},
	}
}

// Observe records one completed result and reports whether it is ready.
//
// ready = server stable, or StableN identical indices in a row with the
// latest confidence at or above the threshold.
func (g *Gate) Observe(result inference.Result, labelIndex int) bool {
	if g.state.ConsecutiveCount > 0 && labelIndex == g.state.LastLabelIndex {
		g.state.ConsecutiveCount++
	} else {
		g.state.LastLabelIndex = labelIndex
		g.state.ConsecutiveCount = 1
	}

	if result.ServerStable {
		return true
	}
	return g.state.ConsecutiveCount >= g.config.StableN &&
		result.Confidence >= g.config.ConfidenceThreshold
}

// State returns the current counters.
func (g *Gate) State() State {
	return g.state
}

// Reset forgets all observations.
func (g *Gate) Reset() {
	g.state = State{LastLabelIndex: NoLabel}
}

// Event builds the ReadyEvent for result. It returns false for an empty
// label, which is never presented.
func Event(result inference.Result, labelIndex int, at time.Time) (ReadyEvent, bool) {
	if result.Label == "" {
		return ReadyEvent{}, false
	}
	return ReadyEvent{
		Label:        result.Label,
		LabelIndex:   labelIndex,
		Confidence:   result.Confidence,
		ServerStable: result.ServerStable,
		Timestamp:    at,
	}, true
}
