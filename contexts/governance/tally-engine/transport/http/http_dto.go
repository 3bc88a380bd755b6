package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SeatResultItem struct {
	CandidateID string `json:"candidate_id"`
	Round       int    `json:"round"`
}

type RoundItem struct {
	Number     int                `json:"number"`
	Totals     map[string]float64 `json:"totals"`
	Action     string             `json:"action"`
	Elected    []string           `json:"elected,omitempty"`
	Eliminated string             `json:"eliminated,omitempty"`
}

type TallyResultResponse struct {
	ElectionID       string           `json:"election_id"`
	TallyID          string           `json:"tally_id"`
	Quota            float64          `json:"quota"`
	Elected          []SeatResultItem `json:"elected"`
	Eliminated       []SeatResultItem `json:"eliminated"`
	Rounds           []RoundItem      `json:"rounds"`
	BallotsCast      int              `json:"ballots_cast"`
	ValidVotes       float64          `json:"valid_votes"`
	ExhaustedOnEntry int              `json:"exhausted_on_entry"`
	ExhaustedWeight  float64          `json:"exhausted_weight"`
	CompletedAt      time.Time        `json:"completed_at"`
	Replayed         bool             `json:"replayed,omitempty"`
}

type AlgorithmItem struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	Version string `json:"version"`
}

type AuditEventItem struct {
	Seq       int            `json:"seq"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

type AuditExportResponse struct {
	ElectionID string           `json:"election_id"`
	TallyID    string           `json:"tally_id"`
	Algorithm  AlgorithmItem    `json:"algorithm"`
	Events     []AuditEventItem `json:"events"`
}

type FlowItem struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Value float64 `json:"flow"`
}

type FlowGraphResponse struct {
	Flows      []FlowItem        `json:"flows"`
	Elected    []string          `json:"elected_nodes"`
	Eliminated []string          `json:"eliminated_nodes"`
	Labels     map[string]string `json:"labels"`
}

type QuorumStatusResponse struct {
	QuorumPercent                   int  `json:"quorum_percent"`
	QuorumRequired                  bool `json:"quorum_required"`
	QuorumMet                       bool `json:"quorum_met"`
	RequiredParticipatingVoterCount int  `json:"required_participating_voter_count"`
	RequiredParticipatingVoteWeight int  `json:"required_participating_vote_weight_total"`
	EligibleVoterCount              int  `json:"eligible_voter_count"`
	EligibleVoteWeightTotal         int  `json:"eligible_vote_weight_total"`
	ParticipatingVoterCount         int  `json:"participating_voter_count"`
	ParticipatingVoteWeightTotal    int  `json:"participating_vote_weight_total"`
}
