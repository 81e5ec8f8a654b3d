// Package tts adapts text-to-speech backends to the TextToSpeech port.
package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/voicebridge/internal/audio"
)

var (
	ErrEmptyText = errors.New("tts: empty text")
	ErrBackend   = errors.New("tts: backend failure")
)

// Backend is the raw synthesis capability; not assumed reentrant.
type Backend interface {
	Synthesize(ctx context.Context, text string) (audio.PCM, error)
}

// Guard enforces the port preconditions and serializes calls into a
// non-reentrant backend.
type Guard struct {
	mu      sync.Mutex
	backend Backend
}

func NewGuard(backend Backend) *Guard {
	return &Guard{backend: backend}
}

func (g *Guard) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	if text == "" {
		return audio.PCM{}, ErrEmptyText
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	wave, err := g.backend.Synthesize(ctx, text)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("%w: %v", ErrBackend, err)
	}
	return wave, nil
}
