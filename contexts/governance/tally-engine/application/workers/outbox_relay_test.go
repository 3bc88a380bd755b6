package workers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/adapters/memory"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/internal/shared/events"
	"github.com/AlmaLinux/astra/internal/shared/outbox"
)

type capturePublisher struct {
	published []events.Envelope
	topics    []string
	fail      error
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event events.Envelope) error {
	if p.fail != nil {
		return p.fail
	}
	p.topics = append(p.topics, topic)
	p.published = append(p.published, event)
	return nil
}

func storeWithOutboxRow(t *testing.T, payload []byte) *memory.Store {
	t.Helper()
	store := memory.NewStore([]entities.Election{{
		ElectionID: "e1",
		Seats:      1,
		Status:     entities.ElectionStatusClosed,
		Candidates: []entities.Candidate{{CandidateID: "A"}},
	}})
	err := store.CommitTally(context.Background(), entities.TallyRecord{TallyID: "t1", ElectionID: "e1"}, outbox.Message{
		ID:        "m1",
		EventType: "governance.election.tallied",
		Payload:   payload,
	})
	if err != nil {
		t.Fatalf("seed commit failed: %v", err)
	}
	return store
}

func TestRelayPublishesAndMarksRows(t *testing.T) {
	envelope := events.Envelope{
		EventID:   "ev1",
		EventType: "governance.election.tallied",
		EntityID:  "e1",
	}
	payload, _ := json.Marshal(envelope)
	store := storeWithOutboxRow(t, payload)
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 1 || publisher.published[0].EventID != "ev1" {
		t.Fatalf("expected one published envelope, got %+v", publisher.published)
	}
	if publisher.topics[0] != "governance.election.tallied" {
		t.Fatalf("expected event type as topic, got %s", publisher.topics[0])
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("published rows must leave the pending set, got %+v", pending)
	}
}

func TestRelayStopsOnPublishFailure(t *testing.T) {
	payload, _ := json.Marshal(events.Envelope{EventID: "ev1", EventType: "governance.election.tallied"})
	store := storeWithOutboxRow(t, payload)
	publisher := &capturePublisher{fail: errors.New("broker down")}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 {
		t.Fatalf("failed publish must keep the row pending for retry, got %+v", pending)
	}
}

func TestRelayMarksUndecodableRowsFailed(t *testing.T) {
	store := storeWithOutboxRow(t, []byte("not-json"))
	publisher := &capturePublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("undecodable rows must not publish, got %+v", publisher.published)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("failed rows must leave the pending set, got %+v", pending)
	}
}

func TestRelayNoopOnEmptyOutbox(t *testing.T) {
	store := memory.NewStore(nil)
	relay := OutboxRelay{Outbox: store, Publisher: &capturePublisher{}, BatchSize: 5}

	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay noop failed: %v", err)
	}
}
