package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
	"github.com/AlmaLinux/astra/internal/shared/events"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after broker publish succeeds. It stops on the first failure
// so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("tally outbox list failed",
			"event", "tally_outbox_list_failed",
			"module", "governance/tally-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		logger.Debug("tally outbox relay found no pending rows",
			"event", "tally_outbox_relay_noop",
			"module", "governance/tally-engine",
			"layer", "worker",
			"batch_size", limit,
		)
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event events.Envelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("tally outbox decode failed",
				"event", "tally_outbox_decode_failed",
				"module", "governance/tally-engine",
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			if merr := r.Outbox.MarkOutboxFailed(ctx, row.ID); merr != nil {
				return merr
			}
			continue
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("tally outbox publish failed",
				"event", "tally_outbox_publish_failed",
				"module", "governance/tally-engine",
				"layer", "worker",
				"outbox_id", row.ID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.ID, now); err != nil {
			logger.Error("tally outbox mark published failed",
				"event", "tally_outbox_mark_published_failed",
				"module", "governance/tally-engine",
				"layer", "worker",
				"outbox_id", row.ID,
				"error", err.Error(),
			)
			return err
		}
	}

	logger.Info("tally outbox relay cycle completed",
		"event", "tally_outbox_relay_completed",
		"module", "governance/tally-engine",
		"layer", "worker",
		"published_count", len(pending),
	)
	return nil
}
