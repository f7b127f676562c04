package observability

import (
	"runtime"
	"sync/atomic"
)

// DeliveryStats is a point-in-time snapshot of the session counters plus
// a couple of Go runtime figures for the telemetry log line.
type DeliveryStats struct {
	MessagesSent      uint64 `json:"messages_sent"`
	MessagesDelivered uint64 `json:"messages_delivered"`
	EventsPublished   uint64 `json:"events_published"`
	EventsRelayed     uint64 `json:"events_relayed"`
	CallsStarted      uint64 `json:"calls_started"`
	CensoredWords     uint64 `json:"censored_words"`
	AllocMemMb        uint64 `json:"alloc_mem_mb"`
	NumGC             uint32 `json:"num_gc"`
}

// Tracker aggregates delivery telemetry with atomic counters.
type Tracker struct {
	messagesSent      atomic.Uint64
	messagesDelivered atomic.Uint64
	eventsPublished   atomic.Uint64
	eventsRelayed     atomic.Uint64
	callsStarted      atomic.Uint64
	censoredWords     atomic.Uint64
}

func NewTracker() *Tracker {
	return &Tracker{}
}

func (t *Tracker) IncrMessagesSent()      { t.messagesSent.Add(1) }
func (t *Tracker) IncrMessagesDelivered() { t.messagesDelivered.Add(1) }
func (t *Tracker) IncrEventsPublished()   { t.eventsPublished.Add(1) }
func (t *Tracker) IncrEventsRelayed()     { t.eventsRelayed.Add(1) }
func (t *Tracker) IncrCallsStarted()      { t.callsStarted.Add(1) }

func (t *Tracker) AddCensoredWords(n int) {
	if n > 0 {
		t.censoredWords.Add(uint64(n))
	}
}

func (t *Tracker) Snapshot() DeliveryStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return DeliveryStats{
		MessagesSent:      t.messagesSent.Load(),
		MessagesDelivered: t.messagesDelivered.Load(),
		EventsPublished:   t.eventsPublished.Load(),
		EventsRelayed:     t.eventsRelayed.Load(),
		CallsStarted:      t.callsStarted.Load(),
		CensoredWords:     t.censoredWords.Load(),
		AllocMemMb:        mem.Alloc / 1024 / 1024,
		NumGC:             mem.NumGC,
	}
}
