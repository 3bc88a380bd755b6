package entities

import "time"

type ElectionStatus string

const (
	ElectionStatusDraft   ElectionStatus = "draft"
	ElectionStatusOpen    ElectionStatus = "open"
	ElectionStatusClosed  ElectionStatus = "closed"
	ElectionStatusTallied ElectionStatus = "tallied"
)

// Candidate is a tally-side projection of an election candidate: the stable
// identifier used on ballots, a display name for rendered artifacts, and at
// most one exclusion-group membership.
type Candidate struct {
	CandidateID string
	DisplayName string
	GroupName   string
}

// ExclusionGroup caps how many of its members may simultaneously hold a seat.
type ExclusionGroup struct {
	Name         string
	MaxElected   int
	CandidateIDs []string
}

type Election struct {
	ElectionID string
	Name       string
	Seats      int
	Status     ElectionStatus
	Candidates []Candidate
	Groups     []ExclusionGroup

	// Quorum inputs come from the upstream eligibility snapshot; the tally
	// engine only reads them for turnout reporting.
	QuorumPercent      int
	EligibleVoterCount int
	EligibleVoteWeight int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Election) CandidateIDs() []string {
	ids := make([]string, 0, len(e.Candidates))
	for _, candidate := range e.Candidates {
		ids = append(ids, candidate.CandidateID)
	}
	return ids
}

// Ballot is one voter's accepted preference ranking. Ballots are immutable
// once accepted; weight carries the credential vote weight (1 for most
// elections, higher for weighted memberships).
type Ballot struct {
	BallotID   string
	ElectionID string
	Ranking    []string
	Weight     int
	CreatedAt  time.Time
}
