package loop

import (
	"time"

	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// Presenter receives announced ready events. Sampling stays suspended
// until release is called (or the guard fires). release may be called from
// any goroutine, more than once, and after the guard has already fired.
// Present must not block the loop; long work belongs on another goroutine.
type Presenter interface {
	Present(ev stability.ReadyEvent, release func())
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ev stability.ReadyEvent, release func())

// Present calls f.
func (f PresenterFunc) Present(ev stability.ReadyEvent, release func()) {
	f(ev, release)
}

// Prediction is one completed classifier result as the loop saw it.
type Prediction struct {
	Label        string          `json:"label"`
	LabelIndex   int             `json:"label_index"`
	Confidence   float64         `json:"confidence"`
	ServerStable bool            `json:"server_stable"`
	Ready        bool            `json:"ready"`
	State        stability.State `json:"state"`
	RequestID    string          `json:"request_id,omitempty"`
	Latency      time.Duration   `json:"latency"`
	At           time.Time       `json:"at"`
}

// Observer receives every prediction. It must not block.
type Observer interface {
	ObservePrediction(p Prediction)
}
