package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

// handleSessionRequest confirms (or resumes) a session. The confirm is
// sent before the session id is recorded on the connection, so no
// utterance for the session can be admitted ahead of the confirmation.
func (ctl *Controller) handleSessionRequest(ctx context.Context, st *connState, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad session_request payload")
		ctl.sendJSON(st.conn, core.NewErrorEvent("bad_payload"))
		return
	}

	sess := ctl.Orch.ConfirmSession(domain.SessionID(p.SessionID), st.conn, st.cancel)
	ctl.sendJSON(st.conn, core.NewSessionConfirm(string(sess.ID)))
	st.sid = sess.ID
	log.Info().Str("module", "signal").Str("sid", string(sess.ID)).Msg("session confirmed")
}

func (ctl *Controller) handleUserUttered(ctx context.Context, st *connState, data []byte) {
	if st.sid == "" {
		ctl.sendJSON(st.conn, core.NewErrorEvent("session not confirmed"))
		return
	}

	var p struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad user_uttered payload")
		ctl.sendJSON(st.conn, core.NewErrorEvent("bad_payload"))
		return
	}
	if p.Message == "" {
		ctl.sendJSON(st.conn, core.NewErrorEvent("empty message"))
		return
	}
	if ctl.limiter != nil && !ctl.limiter.Allow(st.sid) {
		log.Warn().Str("module", "signal").Str("sid", string(st.sid)).Msg("utterance rate limited")
		ctl.sendJSON(st.conn, core.NewErrorEvent("too many messages"))
		return
	}

	ctl.Orch.HandleUtterance(ctx, st.sid, p.Message)
}
