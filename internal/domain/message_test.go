package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUtterance(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		control  bool
		encoding AudioEncoding
	}{
		{"control token", "/get_started", true, 0},
		{"control with payload", "/intent{\"topping\": \"cheese\"}", true, 0},
		{"inline base64", "UklGRiQAAABXQVZF", false, EncodingInlineBase64},
		{"data uri", "data:audio/wav;base64,UklGRg==", false, EncodingInlineBase64},
		{"http url", "http://files.example.com/clip.wav", false, EncodingRemoteURL},
		{"https url", "https://files.example.com/clip.wav", false, EncodingRemoteURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ParseUtterance("sid-1", tt.message)
			assert.Equal(t, SessionID("sid-1"), msg.Session)
			assert.Equal(t, tt.control, msg.IsControl())
			if tt.control {
				assert.Equal(t, tt.message, msg.Control)
				assert.Nil(t, msg.Audio)
			} else {
				require.NotNil(t, msg.Audio)
				assert.Equal(t, tt.encoding, msg.Audio.Encoding)
				assert.Equal(t, tt.message, msg.Audio.Data)
			}
		})
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession("")
	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	s2 := NewSession("")
	assert.NotEqual(t, s.ID, s2.ID)

	fixed := NewSession("fixed-id")
	assert.Equal(t, SessionID("fixed-id"), fixed.ID)
}
