// Package dialogue couples the adapter to the conversational engine
// through a single narrow webhook.
package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

// HTTPDispatcher posts the normalized utterance to the engine's webhook
// and forwards each returned reply, in order, through the sink.
type HTTPDispatcher struct {
	endpoint string
	client   *http.Client
}

type dispatchRequest struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

type dispatchReply struct {
	Text string `json:"text"`
}

func NewHTTPDispatcher(endpoint string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, text string, sid domain.SessionID, channel string, emit core.ReplySink) error {
	payload, err := json.Marshal(dispatchRequest{Sender: string(sid), Message: text, Channel: channel})
	if err != nil {
		return fmt.Errorf("dialogue: build request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("dialogue: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("dialogue: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dialogue: status %d from engine", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dialogue: read response: %w", err)
	}
	var replies []dispatchReply
	if err := json.Unmarshal(body, &replies); err != nil {
		return fmt.Errorf("dialogue: parse response: %w", err)
	}

	log.Debug().Str("module", "dialogue").Str("sid", string(sid)).Int("replies", len(replies)).Msg("dispatched")
	for _, r := range replies {
		emit(r.Text)
	}
	return nil
}
