package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/audio"
)

// HTTPSynthesizer talks to a remote vocoder service: text goes out as
// JSON, the waveform comes back as a WAV body.
type HTTPSynthesizer struct {
	endpoint string
	client   *http.Client
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

func NewHTTPSynthesizer(endpoint string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (audio.PCM, error) {
	payload, err := json.Marshal(synthesizeRequest{Text: text})
	if err != nil {
		return audio.PCM{}, fmt.Errorf("tts: build request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return audio.PCM{}, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("tts: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return audio.PCM{}, fmt.Errorf("tts: status %d from backend", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("tts: read response: %w", err)
	}
	wave, err := audio.DecodeWAV(body)
	if err != nil {
		return audio.PCM{}, fmt.Errorf("tts: parse waveform: %w", err)
	}
	log.Debug().Str("module", "tts").Dur("took", time.Since(started)).Int("chars", len(text)).Msg("synthesized")
	return wave, nil
}
