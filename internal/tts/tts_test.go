package tts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicebridge/internal/audio"
)

type fakeBackend struct {
	calls atomic.Int32
	wave  audio.PCM
	err   error
}

func (f *fakeBackend) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	f.calls.Add(1)
	return f.wave, f.err
}

func TestGuardEmptyTextSkipsBackend(t *testing.T) {
	backend := &fakeBackend{}
	guard := NewGuard(backend)

	_, err := guard.Synthesize(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Equal(t, int32(0), backend.calls.Load())
}

func TestGuardSynthesizes(t *testing.T) {
	want := audio.PCM{Samples: []int16{1, 2, 3}, Rate: 22050, Channels: 1}
	guard := NewGuard(&fakeBackend{wave: want})

	wave, err := guard.Synthesize(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, want, wave)
}

func TestGuardWrapsBackendFailure(t *testing.T) {
	guard := NewGuard(&fakeBackend{err: errors.New("vocoder fell over")})
	_, err := guard.Synthesize(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrBackend)
}
