package presenter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-pointdex/pkg/flavor"
	"github.com/teslashibe/go-pointdex/pkg/loop"
	"github.com/teslashibe/go-pointdex/pkg/stability"
)

// Speaker plays narration text. Speak returns when playback ends or ctx is
// done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Narrator reads the flavor text for each announced label. Sampling stays
// suspended while it speaks; labels without text are released at once.
// Starting a narration cuts off the one still playing.
type Narrator struct {
	book    *flavor.Book
	speaker Speaker
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc // current utterance, nil when idle
}

// NarratorOption configures a Narrator.
type NarratorOption func(*Narrator)

// WithSpeakTimeout bounds a single narration.
func WithSpeakTimeout(d time.Duration) NarratorOption {
	return func(n *Narrator) { n.timeout = d }
}

// WithNarratorLogger sets the logger.
func WithNarratorLogger(logger *slog.Logger) NarratorOption {
	return func(n *Narrator) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNarrator creates a narrator. A nil speaker logs instead of playing.
func NewNarrator(book *flavor.Book, speaker Speaker, opts ...NarratorOption) *Narrator {
	n := &Narrator{
		book:    book,
		speaker: speaker,
		timeout: 30 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("component", "presenter.narrator")
	if n.speaker == nil {
		n.speaker = NewLogSpeaker(n.logger)
	}
	return n
}

// Present implements loop.Presenter.
func (n *Narrator) Present(ev stability.ReadyEvent, release func()) {
	text, ok := n.book.Lookup(ev.Label)
	if !ok {
		n.logger.Debug("no flavor text", "label", ev.Label, "key", flavor.Key(ev.Label))
		release()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.seq++
	seq := n.seq
	n.cancel = cancel
	n.mu.Unlock()

	go func() {
		defer release()
		defer n.finish(seq, cancel)

		if err := n.speaker.Speak(ctx, text); err != nil {
			if errors.Is(err, context.Canceled) {
				n.logger.Debug("narration interrupted", "label", ev.Label)
				return
			}
			n.logger.Warn("narration failed", "label", ev.Label, "error", err)
		}
	}()
}

// Stop cuts off the narration in progress, if any.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

func (n *Narrator) finish(seq uint64, cancel context.CancelFunc) {
	cancel()
	n.mu.Lock()
	if n.seq == seq {
		n.cancel = nil
	}
	n.mu.Unlock()
}

// LogSpeaker logs the text and holds for roughly the time it takes to read
// it aloud.
type LogSpeaker struct {
	logger         *slog.Logger
	wordsPerMinute int
}

// NewLogSpeaker creates a speaker that writes to logger.
func NewLogSpeaker(logger *slog.Logger) *LogSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSpeaker{logger: logger, wordsPerMinute: 160}
}

// Speak implements Speaker.
func (s *LogSpeaker) Speak(ctx context.Context, text string) error {
	d := s.Duration(text)
	s.logger.Info("narrating", "text", text, "duration", d)

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Duration estimates how long text takes to speak.
func (s *LogSpeaker) Duration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 || s.wordsPerMinute <= 0 {
		return 0
	}
	return time.Duration(words) * time.Minute / time.Duration(s.wordsPerMinute)
}

var _ loop.Presenter = (*Narrator)(nil)
