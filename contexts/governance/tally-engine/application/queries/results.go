package queries

import (
	"context"
	"log/slog"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// ResultsQuery serves the committed tally for one election.
type ResultsQuery struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Logger    *slog.Logger
}

func (q ResultsQuery) GetResults(ctx context.Context, electionID string) (entities.TallyRecord, error) {
	logger := application.ResolveLogger(q.Logger)
	record, err := q.Tallies.GetTally(ctx, electionID)
	if err != nil {
		logger.Warn("tally results lookup failed",
			"event", "tally_results_lookup_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return entities.TallyRecord{}, err
	}
	return record, nil
}
