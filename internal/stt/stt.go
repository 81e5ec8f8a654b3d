// Package stt adapts speech-to-text backends to the SpeechToText port.
package stt

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/voicebridge/internal/audio"
)

var (
	ErrEmptyAudio = errors.New("stt: empty audio buffer")
	ErrBackend    = errors.New("stt: backend failure")
)

// Backend is the raw model capability. Implementations load their model
// once at process startup; they are not assumed reentrant.
type Backend interface {
	Transcribe(ctx context.Context, clip audio.PCM) (string, error)
}

// Guard enforces the port preconditions and serializes calls into a
// non-reentrant backend. Precondition violations never reach the model.
type Guard struct {
	mu      sync.Mutex
	backend Backend
}

func NewGuard(backend Backend) *Guard {
	return &Guard{backend: backend}
}

func (g *Guard) Transcribe(ctx context.Context, clip audio.PCM) (string, error) {
	if clip.Empty() {
		return "", ErrEmptyAudio
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	text, err := g.backend.Transcribe(ctx, clip)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return text, nil
}
