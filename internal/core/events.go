package core

// Wire events shared by the orchestrator and the websocket adapter.
// Envelopes are flat JSON objects discriminated by "type".

const (
	EvtSessionRequest = "session_request"
	EvtSessionConfirm = "session_confirm"
	EvtUserUttered    = "user_uttered"
	EvtBotUttered     = "bot_uttered"
	EvtTranscript     = "user_transcript"
	EvtError          = "error"
	EvtPing           = "ping"
	EvtPong           = "pong"
)

type SessionConfirm struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

func NewSessionConfirm(sid string) SessionConfirm {
	return SessionConfirm{Type: EvtSessionConfirm, SessionID: sid}
}

type BotUttered struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

func NewBotUttered(text, link string) BotUttered {
	return BotUttered{Type: EvtBotUttered, Text: text, Link: link}
}

type Transcript struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTranscript(text string) Transcript {
	return Transcript{Type: EvtTranscript, Text: text}
}

type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func NewErrorEvent(reason string) ErrorEvent {
	return ErrorEvent{Type: EvtError, Error: reason}
}
