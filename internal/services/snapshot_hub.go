package services

import (
	"context"
	"errors"
	"sync"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/monitoring"
)

// ErrViewClosed is returned by operations whose result arrived after the view
// was unmounted. The result has been dropped.
var ErrViewClosed = errors.New("view closed")

// snapshotHub fans rendered snapshots out to subscribers. Each subscriber
// holds at most one pending snapshot; a slow reader only ever sees the latest.
type snapshotHub struct {
	mu     sync.Mutex
	subs   map[int]chan any
	next   int
	closed bool
}

func newSnapshotHub() *snapshotHub {
	return &snapshotHub{subs: make(map[int]chan any)}
}

func (h *snapshotHub) subscribe() (<-chan any, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan any, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(c)
		}
	}
}

func (h *snapshotHub) publish(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (h *snapshotHub) subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *snapshotHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

// viewBase carries what every presenter shares: identity, lifetime and the
// snapshot fan-out.
type viewBase struct {
	id     string
	kind   string
	ctx    context.Context
	cancel context.CancelFunc
	hub    *snapshotHub

	seq     int64
	version int64
	closed  bool
}

func newViewBase(parent context.Context, id, kind string) viewBase {
	ctx, cancel := context.WithCancel(parent)
	return viewBase{id: id, kind: kind, ctx: ctx, cancel: cancel, hub: newSnapshotHub()}
}

func (b *viewBase) ID() string   { return b.id }
func (b *viewBase) Kind() string { return b.kind }

// Subscribe returns a channel of rendered snapshots and a cancel func.
func (b *viewBase) Subscribe() (<-chan any, func()) { return b.hub.subscribe() }

// Subscribers reports how many streams are attached.
func (b *viewBase) Subscribers() int { return b.hub.subscribers() }

// opContext is cancelled when either the caller's ctx or the view is done.
func (b *viewBase) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(b.ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (b *viewBase) newNotification(msg string, sev models.Severity) *models.Notification {
	b.seq++
	return &models.Notification{Seq: b.seq, Message: msg, Severity: sev}
}

func (b *viewBase) record(op string, err error) {
	result := "success"
	if err != nil {
		result = models.ErrorKind(err)
		if errors.Is(err, ErrViewClosed) {
			result = "dropped"
		}
	}
	monitoring.RecordViewOperation(b.kind, op, result)
}
