package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"zapboard/internal/cache"
	"zapboard/internal/events"
	"zapboard/internal/metrics"
	"zapboard/internal/model"
	"zapboard/internal/phone"
)

// ErrInvalidRecipient marks a due message whose recipient cannot be
// normalized into a dialable number.
var ErrInvalidRecipient = errors.New("recipient has no dialable digits")

// OutboundChannel is the external WhatsApp session capability: one send
// primitive plus a readiness signal. The bridge client implements it.
type OutboundChannel interface {
	Send(ctx context.Context, to, message string) error
	Ready(ctx context.Context) (bool, error)
}

// MessageStore is the slice of the scheduled store the dispatcher needs.
type MessageStore interface {
	Due(now time.Time) []model.ScheduledMessage
	MarkSent(id string, at time.Time) bool
	MarkFailed(id string, at time.Time, reason string) bool
	Flush() error
}

// StatsRecorder receives one call per completed dispatch.
type StatsRecorder interface {
	RecordSend(recipient string, success bool, responseTimeSeconds float64) error
}

// Dispatcher processes due scheduled messages on every scheduler tick:
// readiness gate, due-set snapshot, concurrent sends, one-pass status
// application, a single persist.
type Dispatcher struct {
	store      MessageStore
	stats      StatsRecorder
	channel    OutboundChannel
	normalizer phone.Normalizer
	hub        *events.Hub
	receipts   cache.ReceiptCache

	// readiness as of the previous tick; Tick runs on a single timeline
	// so no locking is needed.
	readyKnown bool
	lastReady  bool
}

func New(store MessageStore, stats StatsRecorder, channel OutboundChannel, normalizer phone.Normalizer, hub *events.Hub) *Dispatcher {
	return &Dispatcher{
		store:      store,
		stats:      stats,
		channel:    channel,
		normalizer: normalizer,
		hub:        hub,
	}
}

// WithReceiptCache mirrors successful sends into the cache, best effort.
func (d *Dispatcher) WithReceiptCache(c cache.ReceiptCache) *Dispatcher {
	d.receipts = c
	return d
}

type sendOutcome struct {
	msg     model.ScheduledMessage
	wireTo  string
	err     error
	elapsed time.Duration
}

// Tick runs one scheduler pass. A not-ready channel skips the pass
// entirely; that is backpressure, not an error. Send failures stay local
// to their record. Persistence failures are logged and retried implicitly
// on the next tick.
func (d *Dispatcher) Tick(ctx context.Context) {
	ready := d.checkReady(ctx)
	if !ready {
		metrics.TicksSkipped.Inc()
		slog.Debug("bridge not ready, skipping tick")
		return
	}

	due := d.store.Due(time.Now())
	if len(due) == 0 {
		return
	}

	slog.Info("dispatching due scheduled messages", "count", len(due))

	// Snapshot dispatched concurrently; results applied in one pass below
	// so the store is never mutated while the due set is in flight.
	outcomes := make([]sendOutcome, len(due))
	var wg sync.WaitGroup
	for i, msg := range due {
		wg.Add(1)
		go func(i int, msg model.ScheduledMessage) {
			defer wg.Done()
			outcomes[i] = d.send(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	for _, out := range outcomes {
		d.apply(ctx, out)
	}

	if err := d.store.Flush(); err != nil {
		slog.Error("failed to persist scheduled messages", "err", err)
	}
}

func (d *Dispatcher) send(ctx context.Context, msg model.ScheduledMessage) sendOutcome {
	out := sendOutcome{msg: msg, wireTo: d.normalizer.Normalize(msg.Recipient)}

	if out.wireTo == "" {
		out.err = ErrInvalidRecipient
		return out
	}

	start := time.Now()
	out.err = d.channel.Send(ctx, out.wireTo, msg.Message)
	out.elapsed = time.Since(start)
	return out
}

func (d *Dispatcher) apply(ctx context.Context, out sendOutcome) {
	now := time.Now()
	seconds := out.elapsed.Seconds()
	success := out.err == nil

	if success {
		d.store.MarkSent(out.msg.ID, now)
	} else {
		d.store.MarkFailed(out.msg.ID, now, out.err.Error())
		slog.Error("scheduled send failed", "id", out.msg.ID, "recipient", out.msg.Recipient, "err", out.err)
	}

	if err := d.stats.RecordSend(out.wireTo, success, seconds); err != nil {
		slog.Error("failed to record send statistics", "id", out.msg.ID, "err", err)
	}
	metrics.ObserveSend(success, seconds)

	if success && d.receipts != nil {
		if err := d.receipts.StoreReceipt(ctx, out.msg.ID, out.wireTo, now); err != nil {
			slog.Error("failed to cache send receipt", "id", out.msg.ID, "err", err)
		}
	}

	result := events.SendResult{
		ID:        out.msg.ID,
		Recipient: out.msg.Recipient,
		Success:   success,
	}
	if out.err != nil {
		result.Error = out.err.Error()
	}
	d.hub.Publish(events.Event{Type: events.TypeScheduledMessageSent, Payload: result})
}

// checkReady polls the bridge once per tick and publishes a status event
// whenever readiness flips. An unreachable bridge counts as not ready.
func (d *Dispatcher) checkReady(ctx context.Context) bool {
	ready, err := d.channel.Ready(ctx)
	if err != nil {
		ready = false
	}

	if !d.readyKnown || ready != d.lastReady {
		d.readyKnown = true
		d.lastReady = ready
		d.hub.Publish(events.Event{Type: events.TypeStatus, Payload: events.StatusChange{Ready: ready}})
	}

	return ready
}
