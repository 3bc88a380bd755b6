package queries

import (
	"context"
	"log/slog"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// QuorumStatus reports turnout against the election's quorum requirement.
// Both voter count and vote weight must reach the threshold for the quorum
// to be met.
type QuorumStatus struct {
	QuorumPercent  int
	QuorumRequired bool
	QuorumMet      bool

	RequiredParticipatingVoterCount int
	RequiredParticipatingVoteWeight int
	EligibleVoterCount              int
	EligibleVoteWeightTotal         int
	ParticipatingVoterCount         int
	ParticipatingVoteWeightTotal    int
}

// QuorumQuery computes turnout from the eligibility snapshot on the election
// and the accepted ballots.
type QuorumQuery struct {
	Elections ports.ElectionRepository
	Logger    *slog.Logger
}

func (q QuorumQuery) Status(ctx context.Context, electionID string) (QuorumStatus, error) {
	logger := application.ResolveLogger(q.Logger)
	election, err := q.Elections.GetElection(ctx, electionID)
	if err != nil {
		logger.Warn("quorum status lookup failed",
			"event", "quorum_status_lookup_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return QuorumStatus{}, err
	}
	ballots, err := q.Elections.ListBallots(ctx, electionID)
	if err != nil {
		return QuorumStatus{}, err
	}

	status := QuorumStatus{
		QuorumPercent:           election.QuorumPercent,
		QuorumRequired:          election.QuorumPercent > 0,
		EligibleVoterCount:      election.EligibleVoterCount,
		EligibleVoteWeightTotal: election.EligibleVoteWeight,
	}
	for _, ballot := range ballots {
		status.ParticipatingVoterCount++
		status.ParticipatingVoteWeightTotal += ballot.Weight
	}
	if status.QuorumPercent > 0 && status.EligibleVoterCount > 0 {
		// Ceil(eligible * pct / 100) with integer arithmetic.
		status.RequiredParticipatingVoterCount = (status.EligibleVoterCount*status.QuorumPercent + 99) / 100
	}
	if status.QuorumPercent > 0 && status.EligibleVoteWeightTotal > 0 {
		status.RequiredParticipatingVoteWeight = (status.EligibleVoteWeightTotal*status.QuorumPercent + 99) / 100
	}
	status.QuorumMet = status.RequiredParticipatingVoterCount > 0 &&
		status.RequiredParticipatingVoteWeight > 0 &&
		status.ParticipatingVoterCount >= status.RequiredParticipatingVoterCount &&
		status.ParticipatingVoteWeightTotal >= status.RequiredParticipatingVoteWeight
	return status, nil
}
