// Package inference submits normalized frames to a remote image classifier.
//
// The package has two layers. A Classifier performs one request/response
// exchange; Client is the HTTP implementation. A Dispatcher sits on top and
// enforces single-flight: issuing a new request cancels the one before it,
// and a superseded request can never report a result.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithEndpoint("https://example.com/api/predict"),
//	)
//	defer client.Close()
//
//	d := inference.NewDispatcher(client, slog.Default())
//	d.Dispatch(ctx, img, func(o inference.Outcome) {
//	    if o.Err == nil {
//	        fmt.Println(o.Result.Label, o.Result.Confidence)
//	    }
//	})
package inference

import (
	"context"
	"time"

	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// Classifier is the remote classification interface.
type Classifier interface {
	// Classify labels a single encoded image. Cancelling ctx abandons the
	// request and yields an error wrapping ErrCancelled.
	Classify(ctx context.Context, img *frame.NormalizedImage) (*Result, error)
}

// Result is one prediction from the classifier.
type Result struct {
	// Label is the predicted class name. May be empty.
	Label string `json:"label"`

	// Confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// ServerStable is set when the server has already judged the
	// prediction stable; the gate treats it as an override.
	ServerStable bool `json:"stable"`

	// RequestID correlates the result with the X-Request-ID header.
	RequestID string `json:"request_id,omitempty"`

	// Latency is the round-trip time of the call.
	Latency time.Duration `json:"latency"`
}

// Outcome is what a dispatched request resolves to: either Result is set
// and Err is nil, or Err says why there is no result.
type Outcome struct {
	ID     uint64
	Result *Result
	Err    error
}

// Cancelled reports whether the request was superseded or abandoned.
func (o Outcome) Cancelled() bool {
	return IsCancelled(o.Err)
}
