package orch

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voicebridge/internal/core"
	"github.com/dkeye/voicebridge/internal/domain"
)

const (
	workBuffer    = 16
	pendingBuffer = 64
)

type workItem struct {
	ctx context.Context
	msg domain.InboundMessage
}

// pendingReply is one slot in the ordered delivery queue. Synthesis
// fills link (or leaves it empty on degradation) and closes ready.
type pendingReply struct {
	text  string
	link  string
	ready chan struct{}
}

// sessionQueue serializes one session's pipeline: utterances are
// processed FIFO and replies leave in the order they were enqueued,
// regardless of individual synthesis latency.
type sessionQueue struct {
	sid     domain.SessionID
	work    chan workItem
	pending chan *pendingReply
	quit    chan struct{}
	stop    sync.Once
}

func newSessionQueue(sid domain.SessionID) *sessionQueue {
	return &sessionQueue{
		sid:     sid,
		work:    make(chan workItem, workBuffer),
		pending: make(chan *pendingReply, pendingBuffer),
		quit:    make(chan struct{}),
	}
}

func (q *sessionQueue) submit(item workItem) bool {
	select {
	case q.work <- item:
		return true
	case <-q.quit:
		return false
	default:
		return false
	}
}

// enqueueReply reserves the next ordered delivery slot. Blocks when the
// session has pendingBuffer unsent replies, throttling dispatch.
func (q *sessionQueue) enqueueReply(p *pendingReply) bool {
	select {
	case q.pending <- p:
		return true
	case <-q.quit:
		return false
	}
}

func (q *sessionQueue) close() {
	q.stop.Do(func() { close(q.quit) })
}

// runWork processes utterances for one session, one at a time.
func (o *Orchestrator) runWork(q *sessionQueue) {
	for {
		select {
		case <-q.quit:
			return
		case item := <-q.work:
			o.process(item.ctx, q, item.msg)
		}
	}
}

// runDelivery drains the ordered slots: wait for reply N to become
// ready, deliver it, only then look at reply N+1.
func (o *Orchestrator) runDelivery(q *sessionQueue) {
	for {
		select {
		case <-q.quit:
			return
		case p := <-q.pending:
			select {
			case <-q.quit:
				return
			case <-p.ready:
			}
			o.deliver(q.sid, p)
		}
	}
}

// deliver emits exactly one bot_uttered per reply, checking session
// liveness first: results for a dead session are discarded, never
// re-routed.
func (o *Orchestrator) deliver(sid domain.SessionID, p *pendingReply) {
	if err := o.Registry.Deliverable(sid); err != nil {
		o.Metrics.RepliesDropped.Inc()
		log.Debug().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("reply dropped")
		return
	}
	if o.emitTo(sid, core.NewBotUttered(p.text, p.link)) {
		o.Metrics.RepliesDelivered.Inc()
	} else {
		o.Metrics.RepliesDropped.Inc()
	}
}
