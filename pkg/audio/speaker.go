// Package audio speaks narration through a local text-to-speech command
// such as espeak-ng or macOS say.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ErrNoCommand is returned when the speaker has nothing to run.
var ErrNoCommand = errors.New("audio: no speak command")

// CommandSpeaker runs a TTS command per utterance with the text on stdin.
// One utterance plays at a time; a new Speak waits for the previous one.
type CommandSpeaker struct {
	name   string
	args   []string
	logger *slog.Logger

	// Callbacks
	OnPlaybackStart func(text string)
	OnPlaybackEnd   func(text string, err error)

	// Serializes utterances
	playMu sync.Mutex

	// State
	cmd   *exec.Cmd
	cmdMu sync.Mutex
}

// NewCommandSpeaker parses command ("espeak-ng --stdin") into a speaker.
func NewCommandSpeaker(command string, logger *slog.Logger) (*CommandSpeaker, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, ErrNoCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandSpeaker{
		name:   fields[0],
		args:   fields[1:],
		logger: logger.With("component", "audio.speaker"),
	}, nil
}

// Speak plays text and returns when playback finishes or ctx is done.
// A cancelled utterance kills the command.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) (err error) {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", s.name, err)
	}

	s.cmdMu.Lock()
	s.cmd = cmd
	s.cmdMu.Unlock()

	if s.OnPlaybackStart != nil {
		s.OnPlaybackStart(text)
	}
	defer func() {
		s.cmdMu.Lock()
		s.cmd = nil
		s.cmdMu.Unlock()
		if s.OnPlaybackEnd != nil {
			s.OnPlaybackEnd(text, err)
		}
	}()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%s: %w: %s", s.name, err, msg)
		}
		return fmt.Errorf("%s: %w", s.name, err)
	}

	s.logger.Debug("spoke", "chars", len(text))
	return nil
}

// Cancel stops the current utterance, if any.
func (s *CommandSpeaker) Cancel() {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

// IsPlaying returns whether an utterance is running.
func (s *CommandSpeaker) IsPlaying() bool {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()
	return s.cmd != nil
}

// Command returns the program and arguments.
func (s *CommandSpeaker) Command() []string {
	return append([]string{s.name}, s.args...)
}
