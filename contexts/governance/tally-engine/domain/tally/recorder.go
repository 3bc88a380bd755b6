package tally

import (
	"time"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
)

// Recorder is the append-only audit trail of one tally run. Sequence numbers
// are strictly increasing; events are never mutated after Append. The engine
// records every transition here before advancing state, and the collected
// events are committed together with the result or not at all.
type Recorder struct {
	now    func() time.Time
	events []entities.AuditEvent
	seq    int
}

func NewRecorder(now func() time.Time) *Recorder {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Recorder{now: now}
}

func (r *Recorder) Append(kind entities.AuditEventKind, payload map[string]any) {
	r.seq++
	r.events = append(r.events, entities.AuditEvent{
		Seq:       r.seq,
		Kind:      kind,
		Timestamp: r.now().UTC(),
		Payload:   payload,
	})
}

func (r *Recorder) Events() []entities.AuditEvent {
	out := make([]entities.AuditEvent, len(r.events))
	copy(out, r.events)
	return out
}
