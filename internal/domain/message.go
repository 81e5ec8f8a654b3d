package domain

import "strings"

// AudioEncoding tells how the payload bytes are to be obtained.
type AudioEncoding int

const (
	EncodingInlineBase64 AudioEncoding = iota
	EncodingRemoteURL
)

// AudioPayload is an undecoded audio reference: either the inline
// base64 body (possibly with a data-URI prefix) or a remote URL.
type AudioPayload struct {
	Encoding AudioEncoding
	Data     string
}

// InboundMessage is one user utterance, alive for a single pipeline run.
// Exactly one of Control / Audio is set.
type InboundMessage struct {
	Session SessionID
	Control string
	Audio   *AudioPayload
}

func (m InboundMessage) IsControl() bool { return m.Audio == nil }

// DialogueReply is one reply text the dialogue engine produced for a session.
type DialogueReply struct {
	Session SessionID
	Text    string
}

// ParseUtterance classifies the raw user_uttered message string.
// A leading slash marks an out-of-band control command (e.g. "/get_started"),
// an http(s) scheme marks a remote payload, anything else is inline base64.
func ParseUtterance(sid SessionID, message string) InboundMessage {
	if strings.HasPrefix(message, "/") {
		return InboundMessage{Session: sid, Control: message}
	}
	enc := EncodingInlineBase64
	if strings.HasPrefix(message, "http://") || strings.HasPrefix(message, "https://") {
		enc = EncodingRemoteURL
	}
	return InboundMessage{Session: sid, Audio: &AudioPayload{Encoding: enc, Data: message}}
}
