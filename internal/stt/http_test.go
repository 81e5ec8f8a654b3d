package stt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(32<<20))
		file, _, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": "order a pizza"}`))
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, time.Second)
	text, err := tr.Transcribe(context.Background(), validClip())
	require.NoError(t, err)
	assert.Equal(t, "order a pizza", text)
}

func TestHTTPTranscriberBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, time.Second)
	_, err := tr.Transcribe(context.Background(), validClip())
	assert.Error(t, err)
}
