package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-pointdex/pkg/frame"
)

// Dispatcher runs Classify calls one at a time. Every Dispatch supersedes
// the previous request: its context is cancelled and its eventual
// completion is reported as ErrCancelled, never as a result.
//
// The current token is the only shared state. Installing a new token and
// invalidating the old one happen under one lock, and a completion is only
// accepted if its token is still current at that moment.
type Dispatcher struct {
	classifier Classifier
	logger     *slog.Logger

	mu      sync.Mutex
	seq     uint64
	current *flight // nil when nothing is outstanding
}

type flight struct {
	id     uint64
	cancel context.CancelFunc
}

// NewDispatcher wraps classifier with single-flight dispatch.
func NewDispatcher(classifier Classifier, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		classifier: classifier,
		logger:     logger.With("component", "inference.dispatcher"),
	}
}

// Dispatch cancels any outstanding request and starts a new one on its own
// goroutine. It returns the new request's id.
//
// done is called exactly once with the outcome. For an accepted result it
// runs while the token is being retired, so once Active(id) reports false
// the outcome has already been handed over. done must not block or call
// back into the Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, img *frame.NormalizedImage, done func(Outcome)) uint64 {
	reqCtx, cancel := context.WithCancel(ctx)

	d.mu.Lock()
	if d.current != nil {
		d.current.cancel()
	}
	d.seq++
	f := &flight{id: d.seq, cancel: cancel}
	d.current = f
	d.mu.Unlock()

	go d.run(reqCtx, f, img, done)
	return f.id
}

// Cancel abandons the outstanding request, if any.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.current.cancel()
		d.current = nil
	}
}

// Active reports whether id is the current, unresolved request.
func (d *Dispatcher) Active(id uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil && d.current.id == id
}

// InFlight reports whether any request is outstanding.
func (d *Dispatcher) InFlight() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

func (d *Dispatcher) run(ctx context.Context, f *flight, img *frame.NormalizedImage, done func(Outcome)) {
	defer f.cancel()

	var (
		res *Result
		err error
	)
	if d.Active(f.id) {
		res, err = d.classify(ctx, img)
	} else {
		err = ErrCancelled
	}

	d.mu.Lock()
	if d.current == f {
		d.current = nil
		if err == nil && ctx.Err() != nil {
			res, err = nil, fmt.Errorf("request %d: %w", f.id, ErrCancelled)
		}
		done(Outcome{ID: f.id, Result: res, Err: err})
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	d.logger.Debug("dropping superseded outcome", "id", f.id, "kind", Kind(err))
	done(Outcome{ID: f.id, Err: fmt.Errorf("request %d superseded: %w", f.id, ErrCancelled)})
}

// classify calls the classifier, turning a panic into an error.
func (d *Dispatcher) classify(ctx context.Context, img *frame.NormalizedImage) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, WrapError("dispatcher", fmt.Errorf("classifier panic: %v", r))
		}
	}()
	res, err = d.classifier.Classify(ctx, img)
	if err == nil && res == nil {
		err = &MalformedResponseError{Provider: "dispatcher", Reason: "empty result"}
	}
	return res, err
}
