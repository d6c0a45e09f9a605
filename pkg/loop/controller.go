// Package loop drives the sample → classify → gate → announce cycle.
//
// A Controller owns the stability gate and the debounce. Only the goroutine
// running Run (or calling Tick) touches them; everything else talks to the
// controller through Suspend, Resume and Status.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-pointdex/internal/observe"
	"github.com/teslashibe/go-pointdex/pkg/frame"
	"github.com/teslashibe/go-pointdex/pkg/inference"
	"github.com/teslashibe/go-pointdex/pkg/labels"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// ErrAlreadyRunning is returned when Run is called on a running controller.
var ErrAlreadyRunning = errors.New("loop: already running")

// outcomeBuffer bounds completions waiting for the loop goroutine.
const outcomeBuffer = 8

// Controller runs the sampling pipeline.
type Controller struct {
	config     Config
	source     frame.Source
	normalizer *frame.Normalizer
	dispatcher *inference.Dispatcher
	labels     *labels.Table
	presenter  Presenter
	observers  []Observer
	logger     *slog.Logger
	metrics    *observe.Metrics
	now        func() time.Time

	// Owned by the loop goroutine.
	gate      *stability.Gate
	debounce  *stability.Debounce
	pending   uint64
	pendingAt time.Time
	outcomes  chan inference.Outcome

	running atomic.Bool
	cycles  atomic.Uint64

	mu           sync.Mutex
	suspensions  map[Reason]*suspension
	gen          uint64
	resetPending bool
	gateState    stability.State
	last         *Prediction
	announced    *stability.ReadyEvent
}

// New creates a controller sampling source and classifying with classifier.
func New(source frame.Source, classifier inference.Classifier, config Config, opts ...Option) (*Controller, error) {
	if source == nil {
		return nil, errors.New("loop: frame source required")
	}
	if classifier == nil {
		return nil, errors.New("loop: classifier required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("loop: invalid config: %w", err)
	}

	c := &Controller{
		config:      config,
		source:      source,
		normalizer:  frame.NewNormalizer(config.ImageQuality),
		logger:      slog.Default(),
		metrics:     observe.Discard(),
		now:         time.Now,
		gate:        stability.NewGate(config.Stability),
		debounce:    stability.NewDebounce(config.Stability.ReannounceCooldown),
		outcomes:    make(chan inference.Outcome, outcomeBuffer),
		suspensions: make(map[Reason]*suspension),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "loop")
	c.dispatcher = inference.NewDispatcher(classifier, c.logger)
	c.gateState = c.gate.State()
	return c, nil
}

// Run ticks every TickInterval until ctx is done. It returns nil on
// shutdown; no cycle failure stops it.
func (c *Controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()
	return c.run(ctx, ticker.C)
}

func (c *Controller) run(ctx context.Context, ticks <-chan time.Time) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)
	defer c.dispatcher.Cancel()

	c.logger.Info("sampling loop started",
		"tick", c.config.TickInterval,
		"stable_n", c.config.Stability.StableN,
		"conf_thr", c.config.Stability.ConfidenceThreshold,
		"labels", c.labels.Len(),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("sampling loop stopped")
			return nil
		case o := <-c.outcomes:
			c.safely(ctx, "outcome", func() { c.handle(ctx, o) })
		case <-ticks:
			c.Tick(ctx)
		}
	}
}

// Tick runs one scheduling step: it processes finished requests and, if
// nothing blocks sampling, starts a new cycle. Tick must only be called from
// one goroutine, and not while Run is active.
func (c *Controller) Tick(ctx context.Context) {
	c.safely(ctx, "tick", func() { c.tick(ctx) })
}

func (c *Controller) tick(ctx context.Context) {
	c.drain(ctx)
	c.applyReset()

	if c.Suspended() {
		c.metrics.RecordCycle(ctx, "suspended")
		return
	}
	if c.pending != 0 && c.dispatcher.Active(c.pending) {
		if c.config.SupersedeAfter <= 0 || c.now().Sub(c.pendingAt) < c.config.SupersedeAfter {
			c.metrics.RecordCycle(ctx, "busy")
			return
		}
		c.logger.Debug("superseding slow request", "id", c.pending, "age", c.now().Sub(c.pendingAt))
	}

	if w, h := c.source.Dimensions(); w == 0 || h == 0 {
		c.metrics.RecordCycle(ctx, "not_ready")
		return
	}
	raw, err := c.source.Snapshot()
	if err == nil {
		var img *frame.NormalizedImage
		if img, err = c.normalizer.Normalize(raw); err == nil {
			c.dispatch(ctx, img)
			return
		}
	}
	if errors.Is(err, frame.ErrSourceNotReady) {
		c.metrics.RecordCycle(ctx, "not_ready")
		return
	}
	c.logger.Warn("frame skipped", "error", err)
	c.metrics.RecordCycle(ctx, "skipped")
}

// dispatch starts a request unless a suspension arrived meanwhile. The
// check and the dispatch share the suspension lock, and Suspend cancels
// after taking it, so nothing is ever issued while suspended.
func (c *Controller) dispatch(ctx context.Context, img *frame.NormalizedImage) {
	c.mu.Lock()
	if len(c.suspensions) > 0 {
		c.mu.Unlock()
		c.metrics.RecordCycle(ctx, "suspended")
		return
	}
	id := c.dispatcher.Dispatch(ctx, img, c.deliver)
	c.mu.Unlock()

	c.pending = id
	c.pendingAt = c.now()
	c.cycles.Add(1)
	c.metrics.RecordCycle(ctx, "dispatched")
}

// deliver hands an outcome to the loop goroutine. It runs on the
// dispatcher's goroutine and must not block.
func (c *Controller) deliver(o inference.Outcome) {
	select {
	case c.outcomes <- o:
	default:
		c.logger.Warn("outcome dropped, loop not keeping up", "id", o.ID)
	}
}

func (c *Controller) drain(ctx context.Context) {
	for {
		select {
		case o := <-c.outcomes:
			c.handle(ctx, o)
		default:
			return
		}
	}
}

// handle applies one outcome. Only the current request's result reaches
// the gate.
func (c *Controller) handle(ctx context.Context, o inference.Outcome) {
	if o.ID != c.pending {
		c.logger.Debug("ignoring stale outcome", "id", o.ID, "pending", c.pending)
		return
	}
	c.pending = 0
	c.metrics.RecordInference(ctx, inference.Kind(o.Err), c.now().Sub(c.pendingAt))

	if o.Cancelled() {
		return
	}
	if o.Err != nil {
		c.logger.Warn("classification failed", "id", o.ID, "kind", inference.Kind(o.Err), "error", o.Err)
		return
	}

	res := *o.Result
	now := c.now()
	idx := c.labels.Lookup(res.Label)
	ready := c.gate.Observe(res, idx)

	p := Prediction{
		Label:        res.Label,
		LabelIndex:   idx,
		Confidence:   res.Confidence,
		ServerStable: res.ServerStable,
		Ready:        ready,
		State:        c.gate.State(),
		RequestID:    res.RequestID,
		Latency:      res.Latency,
		At:           now,
	}
	c.mu.Lock()
	c.gateState = p.State
	c.last = &p
	c.mu.Unlock()
	for _, obs := range c.observers {
		obs.ObservePrediction(p)
	}

	if !ready {
		return
	}
	ev, ok := stability.Event(res, idx, now)
	if !ok {
		return
	}
	c.metrics.RecordReady(ctx)

	if !c.debounce.ShouldAnnounce(ev) {
		c.metrics.RecordAnnouncement(ctx, false)
		c.logger.Debug("repeat suppressed", "label", ev.Label)
		return
	}
	c.metrics.RecordAnnouncement(ctx, true)
	c.mu.Lock()
	c.announced = &ev
	c.mu.Unlock()

	c.logger.Info("announcing",
		"label", ev.Label,
		"confidence", ev.Confidence,
		"server_stable", ev.ServerStable,
		"count", p.State.ConsecutiveCount,
	)
	c.present(ev)
}

// present suspends sampling and hands ev to the presenter.
func (c *Controller) present(ev stability.ReadyEvent) {
	if c.presenter == nil {
		return
	}
	release := c.Suspend(ReasonPresentation)
	defer func() {
		if r := recover(); r != nil {
			release()
			panic(r)
		}
	}()
	c.presenter.Present(ev, release)
}

func (c *Controller) applyReset() {
	c.mu.Lock()
	reset := c.resetPending
	c.resetPending = false
	c.mu.Unlock()
	if !reset {
		return
	}
	c.gate.Reset()
	c.mu.Lock()
	c.gateState = c.gate.State()
	c.mu.Unlock()
}

// safely runs fn, turning a panic into a logged, counted skip.
func (c *Controller) safely(ctx context.Context, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cycle panicked", "stage", what, "panic", r)
			c.metrics.RecordCycle(ctx, "panic")
		}
	}()
	fn()
}

// Status is a point-in-time view of the controller.
type Status struct {
	Running       bool                  `json:"running"`
	Suspended     []Reason              `json:"suspended"`
	InFlight      bool                  `json:"in_flight"`
	Cycles        uint64                `json:"cycles"`
	Gate          stability.State       `json:"gate"`
	Last          *Prediction           `json:"last,omitempty"`
	LastAnnounced *stability.ReadyEvent `json:"last_announced,omitempty"`
}

// Status returns a snapshot safe to use from any goroutine.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		Running:   c.running.Load(),
		Suspended: c.activeReasonsLocked(),
		InFlight:  c.dispatcher.InFlight(),
		Cycles:    c.cycles.Load(),
		Gate:      c.gateState,
	}
	if c.last != nil {
		p := *c.last
		s.Last = &p
	}
	if c.announced != nil {
		ev := *c.announced
		s.LastAnnounced = &ev
	}
	return s
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config {
	return c.config
}
