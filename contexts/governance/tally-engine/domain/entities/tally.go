package entities

import "time"

type RoundAction string

const (
	RoundActionElect     RoundAction = "elect"
	RoundActionEliminate RoundAction = "eliminate"
	RoundActionNone      RoundAction = "none"
)

// RoundRecord is the snapshot of one counting step. Totals hold every
// still-active candidate's running total plus, for already-elected
// candidates, their retained quota, so vote conservation stays auditable
// round by round.
type RoundRecord struct {
	Number     int
	Totals     map[string]float64
	Action     RoundAction
	Elected    []string
	Eliminated string
}

// Transfer is one weighted edge of vote provenance. From is empty for the
// synthetic Voters source feeding round 1; To is TransferExhausted when the
// weight leaves circulation. Carry-over transfers (same candidate, round n to
// n+1) are recorded too, so the union of all transfers accounts for every
// vote.
type Transfer struct {
	FromRound int
	From      string
	ToRound   int
	To        string
	Weight    float64
}

// TransferExhausted is the terminal sink identifier on Transfer.To.
const TransferExhausted = "Exhausted"

type AuditEventKind string

const (
	AuditRoundStarted        AuditEventKind = "ROUND_STARTED"
	AuditCandidateElected    AuditEventKind = "CANDIDATE_ELECTED"
	AuditCandidateEliminated AuditEventKind = "CANDIDATE_ELIMINATED"
	AuditVotesTransferred    AuditEventKind = "VOTES_TRANSFERRED"
	AuditGroupCapReached     AuditEventKind = "GROUP_CAP_REACHED"
	AuditTallyCompleted      AuditEventKind = "TALLY_COMPLETED"
)

// AuditEvent is one append-only record of the tally trail. Seq is strictly
// increasing within a tally; payloads are self-contained so the log alone can
// reconstruct the count.
type AuditEvent struct {
	Seq       int
	Kind      AuditEventKind
	Timestamp time.Time
	Payload   map[string]any
}

type SeatResult struct {
	CandidateID string
	Round       int
}

type Result struct {
	Quota      float64
	Elected    []SeatResult
	Eliminated []SeatResult
}

// TallyRecord is the complete committed artifact of one tally run. It is
// written in a single transaction or not at all.
type TallyRecord struct {
	TallyID    string
	ElectionID string
	Result     Result
	Rounds     []RoundRecord
	Transfers  []Transfer
	Audit      []AuditEvent

	BallotsCast      int
	ValidVotes       float64
	ExhaustedOnEntry int
	ExhaustedWeight  float64

	CompletedAt time.Time
}

// Flow is one rendered edge of the vote-flow graph.
type Flow struct {
	From  string
	To    string
	Value float64
}

// FlowGraph is the visualization artifact derived from a completed tally.
// Labels maps node IDs to their display label; intermediate unchanged rounds
// carry an empty label by policy while the node keeps its full weight.
type FlowGraph struct {
	Flows      []Flow
	Elected    []string
	Eliminated []string
	Labels     map[string]string
}
