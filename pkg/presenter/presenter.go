// Package presenter holds the loop's presentation collaborators: flavor
// text narration and fan-out to several presenters.
package presenter

import (
	"sync"

	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// Multi presents each event to every child and releases once all of them
// have released.
type Multi []loop.Presenter

// Present implements loop.Presenter.
func (m Multi) Present(ev stability.ReadyEvent, release func()) {
	children := make([]loop.Presenter, 0, len(m))
	for _, p := range m {
		if p != nil {
			children = append(children, p)
		}
	}
	if len(children) == 0 {
		release()
		return
	}

	var (
		mu        sync.Mutex
		remaining = len(children)
	)
	for _, p := range children {
		var once sync.Once
		p.Present(ev, func() {
			once.Do(func() {
				mu.Lock()
				remaining--
				done := remaining == 0
				mu.Unlock()
				if done {
					release()
				}
			})
		})
	}
}

// Observers fans predictions out to several observers.
type Observers []loop.Observer

// ObservePrediction implements loop.Observer.
func (o Observers) ObservePrediction(p loop.Prediction) {
	for _, obs := range o {
		if obs != nil {
			obs.ObservePrediction(p)
		}
	}
}

var (
	_ loop.Presenter = Multi(nil)
	_ loop.Observer  = Observers(nil)
)
