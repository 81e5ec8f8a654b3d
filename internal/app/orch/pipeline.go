package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

// Stage names the pipeline step a request was in when it failed.
type Stage string

const (
	StageReceived     Stage = "received"
	StageDecoding     Stage = "decoding"
	StageTranscribing Stage = "transcribing"
	StageDispatching  Stage = "dispatching"
	StageSynthesizing Stage = "synthesizing"
	StageDelivering   Stage = "delivering"
)

// StageError ties a failure to the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func failed(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// process runs one utterance through the state machine. Failures abort
// this request only: an error event goes to the originating session and
// nothing is dispatched.
func (o *Orchestrator) process(ctx context.Context, q *sessionQueue, msg domain.InboundMessage) {
	text, serr := o.normalize(ctx, msg)
	if serr != nil {
		log.Warn().Err(serr).Str("module", "orch").Str("sid", string(msg.Session)).Str("stage", string(serr.Stage)).Msg("pipeline failed")
		o.emitTo(msg.Session, core.NewErrorEvent(userFacing(serr)))
		return
	}

	if o.EmitTranscript && !msg.IsControl() {
		o.emitTo(msg.Session, core.NewTranscript(text))
	}

	// Dispatching. Replies arrive through the sink in engine order;
	// each reserves its delivery slot before synthesis starts so a
	// fast reply can never overtake a slow earlier one.
	sink := func(reply string) {
		p := &pendingReply{text: reply, ready: make(chan struct{})}
		if !q.enqueueReply(p) {
			return
		}
		go o.synthesize(ctx, msg.Session, p)
	}
	if err := o.Dialogue.Dispatch(ctx, text, msg.Session, o.Channel, sink); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(msg.Session)).Str("stage", string(StageDispatching)).Msg("dialogue dispatch failed")
	}
}

// normalize turns the inbound message into dispatchable text. Control
// commands bypass audio entirely; empty transcripts pass through, the
// adapter does not suppress them.
func (o *Orchestrator) normalize(ctx context.Context, msg domain.InboundMessage) (string, *StageError) {
	if msg.IsControl() {
		o.Metrics.ControlCommands.Inc()
		return msg.Control, nil
	}

	// Decoding and Transcribing hold a pool slot: both are heavy and
	// must not run unbounded across sessions.
	o.acquire()
	defer o.release()

	started := time.Now()
	clip, err := o.Codec.Decode(ctx, *msg.Audio)
	if err != nil {
		o.Metrics.DecodeFailures.Inc()
		return "", failed(StageDecoding, err)
	}
	o.Metrics.DecodeDuration.Observe(time.Since(started).Seconds())

	started = time.Now()
	text, err := o.STT.Transcribe(ctx, clip)
	if err != nil {
		o.Metrics.STTFailures.Inc()
		return "", failed(StageTranscribing, err)
	}
	o.Metrics.TranscribeDuration.Observe(time.Since(started).Seconds())
	return text, nil
}

// synthesize fills one delivery slot: TTS then artifact write, each
// degrading to a text-only reply on failure.
func (o *Orchestrator) synthesize(ctx context.Context, sid domain.SessionID, p *pendingReply) {
	defer close(p.ready)

	if p.text == "" {
		// control-only reply, nothing to vocalize
		return
	}

	o.acquire()
	defer o.release()

	started := time.Now()
	wave, err := o.TTS.Synthesize(ctx, p.text)
	if err != nil {
		o.Metrics.TTSFailures.Inc()
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("stage", string(StageSynthesizing)).Msg("synthesis failed, delivering text only")
		return
	}
	o.Metrics.SynthesizeDuration.Observe(time.Since(started).Seconds())

	link, err := o.Store.Put(ctx, sid, wave)
	if err != nil {
		o.Metrics.ArtifactFailures.Inc()
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Str("stage", string(StageDelivering)).Msg("artifact write failed, delivering text only")
		return
	}
	p.link = link
}

// userFacing maps a stage error to the reason sent over the wire.
func userFacing(serr *StageError) string {
	switch {
	case errors.Is(serr.Err, audio.ErrMalformedEncoding):
		return "audio payload is not valid base64"
	case errors.Is(serr.Err, audio.ErrFetchFailed):
		return "audio could not be fetched"
	case errors.Is(serr.Err, audio.ErrUnsupportedFormat):
		return "audio format not supported"
	case serr.Stage == StageTranscribing:
		return "speech could not be recognized"
	default:
		return "message could not be processed"
	}
}
