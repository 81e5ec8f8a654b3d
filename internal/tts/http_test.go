package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voicebridge/internal/audio"
)

func TestHTTPSynthesizer(t *testing.T) {
	wav, err := audio.EncodeWAV(audio.PCM{Samples: make([]int16, 2205), Rate: 22050, Channels: 1})
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello there", req.Text)
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(wav)
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, time.Second)
	wave, err := s.Synthesize(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, 22050, wave.Rate)
	assert.NotEmpty(t, wave.Samples)
}

func TestHTTPSynthesizerBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not a waveform"))
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, time.Second)
	_, err := s.Synthesize(context.Background(), "hello")
	assert.Error(t, err)
}
