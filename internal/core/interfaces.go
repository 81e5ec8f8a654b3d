package core

import (
	"context"

	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/domain"
)

// Frame is a raw serialized transport payload.
type Frame []byte

// SignalConnection abstracts the per-connection messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// SpeechToText is the transcription capability. Implementations are
// shared across all sessions and must be safe for concurrent use;
// non-reentrant backends go behind stt.Guard.
type SpeechToText interface {
	Transcribe(ctx context.Context, clip audio.PCM) (string, error)
}

// TextToSpeech is the synthesis capability. Same sharing and
// reentrancy rules as SpeechToText.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) (audio.PCM, error)
}

// ArtifactStore persists a synthesized waveform and returns the public
// link clients fetch it from.
type ArtifactStore interface {
	Put(ctx context.Context, sid domain.SessionID, wave audio.PCM) (string, error)
}

// ReplySink receives reply texts in the order the dialogue engine
// produced them.
type ReplySink func(text string)

// Dispatcher is the only coupling to the conversational-logic engine.
// Dispatch may emit zero or more replies through the sink before it
// returns; replies are keyed to the session they were dispatched for.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string, sid domain.SessionID, channel string, emit ReplySink) error
}
