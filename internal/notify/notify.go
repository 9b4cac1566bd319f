// Package notify implements toast notifications shown to a visitor on the
// next page render.
package notify

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a toast stays up before it dismisses itself.
const DefaultTTL = 4 * time.Second

// Kind selects the toast style.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a single toast message.
type Notification struct {
	Kind    Kind
	Message string
}

func Success(msg string) Notification { return Notification{Kind: KindSuccess, Message: msg} }
func Error(msg string) Notification   { return Notification{Kind: KindError, Message: msg} }
func Info(msg string) Notification    { return Notification{Kind: KindInfo, Message: msg} }

// Sink receives notifications addressed to a visitor.
type Sink interface {
	Notify(ctx context.Context, visitorID string, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, visitorID string, n Notification)

// Notify implements Sink.
func (f SinkFunc) Notify(ctx context.Context, visitorID string, n Notification) {
	f(ctx, visitorID, n)
}

// Discard drops every notification.
var Discard Sink = SinkFunc(func(context.Context, string, Notification) {})

type toast struct {
	n     Notification
	seq   uint64
	timer *time.Timer
}

// Board keeps at most one toast per visitor. Showing a toast replaces the
// previous one; each toast is removed after the TTL unless closed first.
type Board struct {
	ttl time.Duration

	mu     sync.Mutex
	seq    uint64
	toasts map[string]*toast
}

var _ Sink = (*Board)(nil)

// NewBoard creates a Board. ttl <= 0 uses DefaultTTL.
func NewBoard(ttl time.Duration) *Board {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Board{
		ttl:    ttl,
		toasts: make(map[string]*toast),
	}
}

// Notify implements Sink by showing n.
func (b *Board) Notify(_ context.Context, visitorID string, n Notification) {
	b.Show(visitorID, n)
}

// Show replaces the visitor's toast with n and arms its dismiss timer.
func (b *Board) Show(visitorID string, n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prev, ok := b.toasts[visitorID]; ok {
		prev.timer.Stop()
	}
	b.seq++
	seq := b.seq
	b.toasts[visitorID] = &toast{
		n:   n,
		seq: seq,
		timer: time.AfterFunc(b.ttl, func() {
			b.expire(visitorID, seq)
		}),
	}
}

// Current returns the visitor's toast, if any.
func (b *Board) Current(visitorID string) (Notification, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.toasts[visitorID]
	if !ok {
		return Notification{}, false
	}
	return t.n, true
}

// Close cancels the visitor's pending dismiss and removes the toast. It
// reports whether a toast was showing.
func (b *Board) Close(visitorID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.toasts[visitorID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(b.toasts, visitorID)
	return true
}

// Len returns the number of visitors with a toast showing.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.toasts)
}

// Stop cancels every pending timer and drops all toasts.
func (b *Board) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, t := range b.toasts {
		t.timer.Stop()
		delete(b.toasts, id)
	}
}

// expire removes the toast only if it is still the one the timer was armed
// for; a replaced toast has a newer seq.
func (b *Board) expire(visitorID string, seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if t, ok := b.toasts[visitorID]; ok && t.seq == seq {
		delete(b.toasts, visitorID)
	}
}
