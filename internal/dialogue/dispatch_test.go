package dialogue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchForwardsRepliesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Sender  string `json:"sender"`
			Message string `json:"message"`
			Channel string `json:"channel"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess-42", req.Sender)
		assert.Equal(t, "i want a pizza", req.Message)
		assert.Equal(t, "voice", req.Channel)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"text": "What size?"}, {"text": "And which toppings?"}]`))
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, time.Second)
	var got []string
	err := d.Dispatch(context.Background(), "i want a pizza", "sess-42", "voice", func(text string) {
		got = append(got, text)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"What size?", "And which toppings?"}, got)
}

func TestDispatchNoReplies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, time.Second)
	calls := 0
	err := d.Dispatch(context.Background(), "/get_started", "s", "voice", func(string) { calls++ })
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestDispatchEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, time.Second)
	err := d.Dispatch(context.Background(), "hi", "s", "voice", func(string) {
		t.Fatal("sink must not run on engine failure")
	})
	assert.Error(t, err)
}
