package app

// BackpressureAction decides what happens when a session's send buffer
// is full at delivery time.
type BackpressureAction int

const (
	DropReply BackpressureAction = iota
	ForgetSession
)

type Policy interface {
	OnBackPressure(sid string) BackpressureAction
}

// SimplePolicy drops the single reply and keeps the session; a slow
// reader loses messages but stays connected.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(string) BackpressureAction { return DropReply }
