package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/audio"
)

// HTTPTranscriber talks to a remote recognition service: the clip goes
// out as a multipart WAV upload, the transcript comes back as JSON.
type HTTPTranscriber struct {
	endpoint string
	client   *http.Client
}

type transcribeResponse struct {
	Text string `json:"text"`
}

func NewHTTPTranscriber(endpoint string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, clip audio.PCM) (string, error) {
	wav, err := audio.EncodeWAV(clip)
	if err != nil {
		return "", fmt.Errorf("stt: encode clip: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	if _, err := part.Write(wav); err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("stt: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	started := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt: status %d from backend", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("stt: read response: %w", err)
	}
	var out transcribeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("stt: parse response: %w", err)
	}
	log.Debug().Str("module", "stt").Dur("took", time.Since(started)).Int("samples", len(clip.Samples)).Msg("transcribed")
	return out.Text, nil
}
