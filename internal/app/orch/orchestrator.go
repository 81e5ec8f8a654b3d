// Package orch drives the voice pipeline: decode, transcribe, dispatch,
// synthesize, deliver. One inbound utterance is processed at a time per
// session; heavy stages run on a bounded worker pool shared by all
// sessions; replies are delivered strictly in dispatch order.
package orch

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/app"
	"github.com/dkeye/voicebridge/internal/audio"
	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
	"github.com/dkeye/voicebridge/internal/metrics"
)

const defaultWorkers = 4

type Orchestrator struct {
	Registry *app.Registry
	Codec    *audio.Codec
	STT      core.SpeechToText
	TTS      core.TextToSpeech
	Store    core.ArtifactStore
	Dialogue core.Dispatcher
	Policy   app.Policy
	Metrics  *metrics.Metrics

	// Channel is the source channel name handed to the dialogue engine.
	Channel string
	// Workers caps concurrent decode/inference across all sessions.
	Workers int
	// EmitTranscript controls the intermediate user_transcript event.
	EmitTranscript bool

	once   sync.Once
	sem    chan struct{}
	mu     sync.Mutex
	queues map[domain.SessionID]*sessionQueue
}

func (o *Orchestrator) init() {
	o.once.Do(func() {
		n := o.Workers
		if n <= 0 {
			n = defaultWorkers
		}
		o.sem = make(chan struct{}, n)
		o.queues = make(map[domain.SessionID]*sessionQueue)
	})
}

func (o *Orchestrator) acquire() { o.init(); o.sem <- struct{}{} }
func (o *Orchestrator) release() { <-o.sem }

// ConfirmSession resolves a session_request: create or resume the
// session, bind the transport, and (with persistence on) join the
// session's own room so a reconnect can be re-addressed.
func (o *Orchestrator) ConfirmSession(requested domain.SessionID, conn core.SignalConnection, cancel context.CancelFunc) *domain.Session {
	o.init()
	sess, resumed := o.Registry.CreateOrResume(requested)
	if err := o.Registry.Bind(sess.ID, conn, cancel); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sess.ID)).Msg("bind after create")
	}
	if o.Registry.Persistence() {
		_ = o.Registry.JoinRoom(sess.ID, domain.RoomName(sess.ID))
	}
	if resumed {
		o.Metrics.SessionsResumed.Inc()
	} else {
		o.Metrics.SessionsCreated.Inc()
	}
	o.Metrics.ActiveSessions.Set(float64(o.Registry.Count()))
	return sess
}

// HandleUtterance admits one user_uttered message into the session's
// ordered work queue and returns immediately. The work is detached from
// the caller's cancellation: a disconnect never aborts in-flight
// inference, stale results are discarded at delivery instead.
func (o *Orchestrator) HandleUtterance(ctx context.Context, sid domain.SessionID, message string) {
	o.init()
	o.Metrics.MessagesReceived.Inc()
	msg := domain.ParseUtterance(sid, message)
	q := o.queue(sid)
	if q == nil {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("utterance for unknown session dropped")
		return
	}
	if !q.submit(workItem{ctx: context.WithoutCancel(ctx), msg: msg}) {
		log.Warn().Str("module", "orch").Str("sid", string(sid)).Msg("work queue saturated, utterance dropped")
		o.emitTo(sid, core.NewErrorEvent("too many pending messages"))
	}
}

// Disconnect detaches the transport. When the registry releases the
// session (persistence off or no room) the delivery queue goes with it;
// in-flight results are then discarded at delivery time.
func (o *Orchestrator) Disconnect(sid domain.SessionID, conn core.SignalConnection) {
	o.init()
	o.Registry.Detach(sid, conn)
	if _, ok := o.Registry.Session(sid); !ok {
		o.dropQueue(sid)
	}
	o.Metrics.ActiveSessions.Set(float64(o.Registry.Count()))
}

// Forget releases a session and its queue unconditionally.
func (o *Orchestrator) Forget(sid domain.SessionID) {
	o.init()
	o.Registry.Forget(sid)
	o.dropQueue(sid)
	o.Metrics.ActiveSessions.Set(float64(o.Registry.Count()))
}

// queue returns the session's queue, creating it on first use. Only
// registered sessions get one; anything else would leak the two queue
// goroutines, since dropQueue fires on Disconnect/Forget of known
// sessions only.
func (o *Orchestrator) queue(sid domain.SessionID) *sessionQueue {
	o.mu.Lock()
	defer o.mu.Unlock()
	if q, ok := o.queues[sid]; ok {
		return q
	}
	if _, ok := o.Registry.Session(sid); !ok {
		return nil
	}
	q := newSessionQueue(sid)
	o.queues[sid] = q
	go o.runWork(q)
	go o.runDelivery(q)
	return q
}

func (o *Orchestrator) dropQueue(sid domain.SessionID) {
	o.mu.Lock()
	q, ok := o.queues[sid]
	if ok {
		delete(o.queues, sid)
	}
	o.mu.Unlock()
	if ok {
		q.close()
	}
}

// emitTo marshals an event and sends it to the session's live
// connection, or to its room members when a room is established.
func (o *Orchestrator) emitTo(sid domain.SessionID, v any) bool {
	frame, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("marshal outbound event")
		return false
	}
	sess, ok := o.Registry.Session(sid)
	if !ok {
		return false
	}
	if sess.Room != "" {
		members := o.Registry.MembersOfRoom(sess.Room)
		sent := false
		for _, m := range members {
			if o.trySend(m.SID, m.Conn, frame) {
				sent = true
			}
		}
		return sent
	}
	conn, ok := o.Registry.Conn(sid)
	if !ok {
		return false
	}
	return o.trySend(sid, conn, frame)
}

func (o *Orchestrator) trySend(sid domain.SessionID, conn core.SignalConnection, frame core.Frame) bool {
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("send failed")
		if o.Policy != nil && o.Policy.OnBackPressure(string(sid)) == app.ForgetSession {
			o.Forget(sid)
		}
		return false
	}
	return true
}
