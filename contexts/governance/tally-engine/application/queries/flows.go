package queries

import (
	"context"
	"log/slog"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/tally"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// FlowsQuery derives the vote-flow graph for a tallied election. The graph
// is computed from the committed transfer set on every call, so repeated
// calls for the same tally return the same graph.
type FlowsQuery struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Logger    *slog.Logger
}

func (q FlowsQuery) GetFlows(ctx context.Context, electionID string) (*entities.FlowGraph, error) {
	logger := application.ResolveLogger(q.Logger)
	record, err := q.Tallies.GetTally(ctx, electionID)
	if err != nil {
		logger.Warn("tally flows lookup failed",
			"event", "tally_flows_lookup_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return nil, err
	}

	// Missing display names fall back to candidate identifiers inside the
	// graph builder, so a failed election lookup degrades instead of failing.
	names := map[string]string{}
	if election, err := q.Elections.GetElection(ctx, electionID); err == nil {
		for _, candidate := range election.Candidates {
			names[candidate.CandidateID] = candidate.DisplayName
		}
	}
	return tally.BuildFlowGraph(&record, names), nil
}
