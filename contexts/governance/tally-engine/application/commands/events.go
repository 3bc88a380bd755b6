package commands

import (
	"context"
	"encoding/json"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
	"github.com/AlmaLinux/astra/internal/shared/events"
	"github.com/AlmaLinux/astra/internal/shared/outbox"
)

// EventTypeElectionTallied announces a committed tally. Partitioned by
// election so election-scoped consumers see tallies in order.
const EventTypeElectionTallied = "governance.election.tallied"

func buildTalliedMessage(ctx context.Context, idGen ports.IDGenerator, record entities.TallyRecord) (outbox.Message, error) {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return outbox.Message{}, err
	}

	elected := make([]map[string]any, 0, len(record.Result.Elected))
	for _, seat := range record.Result.Elected {
		elected = append(elected, map[string]any{"candidate_id": seat.CandidateID, "round": seat.Round})
	}
	envelope := events.Envelope{
		EventID:        eventID,
		EventType:      EventTypeElectionTallied,
		SourceService:  "tally-engine",
		OccurredAtUTC:  record.CompletedAt.UTC(),
		CorrelationID:  record.TallyID,
		EntityType:     "election",
		EntityID:       record.ElectionID,
		PayloadVersion: 1,
		Payload: map[string]any{
			"tally_id":     record.TallyID,
			"election_id":  record.ElectionID,
			"quota":        record.Result.Quota,
			"elected":      elected,
			"rounds":       len(record.Rounds),
			"ballots_cast": record.BallotsCast,
			"valid_votes":  record.ValidVotes,
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outbox.Message{}, err
	}
	return outbox.Message{
		ID:        eventID,
		EventType: envelope.EventType,
		Payload:   payload,
		Status:    outbox.StatusPending,
	}, nil
}
