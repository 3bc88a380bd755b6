package unit

import (
	"context"
	"errors"
	"testing"

	tallyengine "github.com/AlmaLinux/astra/contexts/governance/tally-engine"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
)

func seedBoardElection(module tallyengine.Module) {
	module.Store.SetElection(entities.Election{
		ElectionID: "board-2026",
		Name:       "Board Election 2026",
		Seats:      1,
		Status:     entities.ElectionStatusClosed,
		Candidates: []entities.Candidate{
			{CandidateID: "alice", DisplayName: "Alice"},
			{CandidateID: "bob", DisplayName: "Bob"},
			{CandidateID: "carol", DisplayName: "Carol"},
		},
		QuorumPercent:      50,
		EligibleVoterCount: 6,
		EligibleVoteWeight: 6,
	})
	module.Store.SetBallots("board-2026", []entities.Ballot{
		{BallotID: "b1", Ranking: []string{"alice", "bob"}, Weight: 1},
		{BallotID: "b2", Ranking: []string{"alice"}, Weight: 1},
		{BallotID: "b3", Ranking: []string{"bob"}, Weight: 1},
		{BallotID: "b4", Ranking: []string{"carol", "alice"}, Weight: 1},
	})
}

func TestTallyEngineEndToEnd(t *testing.T) {
	module := tallyengine.NewInMemoryModule(nil, nil)
	seedBoardElection(module)
	ctx := context.Background()

	result, err := module.Handler.RunTallyHandler(ctx, "board-2026", "council-chair")
	if err != nil {
		t.Fatalf("tally run failed: %v", err)
	}
	if result.Replayed {
		t.Fatalf("first run must not be a replay")
	}
	if len(result.Elected) != 1 || result.Elected[0].CandidateID != "alice" {
		t.Fatalf("expected alice elected, got %+v", result.Elected)
	}
	if result.BallotsCast != 4 || result.ValidVotes != 4 {
		t.Fatalf("unexpected ballot accounting: %+v", result)
	}

	results, err := module.Handler.ResultsHandler(ctx, "board-2026")
	if err != nil {
		t.Fatalf("results lookup failed: %v", err)
	}
	if results.TallyID != result.TallyID {
		t.Fatalf("results must return the committed tally, got %s want %s", results.TallyID, result.TallyID)
	}

	audit, err := module.Handler.AuditHandler(ctx, "board-2026")
	if err != nil {
		t.Fatalf("audit export failed: %v", err)
	}
	if audit.Algorithm.Name != "Single Transferable Vote" {
		t.Fatalf("unexpected algorithm metadata: %+v", audit.Algorithm)
	}
	if len(audit.Events) == 0 {
		t.Fatalf("audit export must carry the event trail")
	}
	last := audit.Events[len(audit.Events)-1]
	if last.Kind != "TALLY_COMPLETED" {
		t.Fatalf("audit trail must end with TALLY_COMPLETED, got %s", last.Kind)
	}

	flows, err := module.Handler.FlowsHandler(ctx, "board-2026")
	if err != nil {
		t.Fatalf("flows lookup failed: %v", err)
	}
	if len(flows.Flows) == 0 {
		t.Fatalf("flow graph must not be empty")
	}
	fromVoters := 0.0
	for _, flow := range flows.Flows {
		if flow.From == "Voters" {
			fromVoters += flow.Value
		}
	}
	if fromVoters != 4 {
		t.Fatalf("expected 4 votes leaving the Voters node, got %v", fromVoters)
	}
	sawAlice := false
	for _, label := range flows.Labels {
		if label == "Alice" {
			sawAlice = true
		}
	}
	if !sawAlice {
		t.Fatalf("flow labels must use display names, got %v", flows.Labels)
	}
}

func TestTallyEngineReplayOnSecondRun(t *testing.T) {
	module := tallyengine.NewInMemoryModule(nil, nil)
	seedBoardElection(module)
	ctx := context.Background()

	first, err := module.Handler.RunTallyHandler(ctx, "board-2026", "")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := module.Handler.RunTallyHandler(ctx, "board-2026", "")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !second.Replayed || second.TallyID != first.TallyID {
		t.Fatalf("second run must replay the stored tally: %+v", second)
	}
}

func TestTallyEngineRejectsOpenElection(t *testing.T) {
	module := tallyengine.NewInMemoryModule([]entities.Election{{
		ElectionID: "open-vote",
		Seats:      1,
		Status:     entities.ElectionStatusOpen,
		Candidates: []entities.Candidate{{CandidateID: "alice"}},
	}}, nil)

	_, err := module.Handler.RunTallyHandler(context.Background(), "open-vote", "")
	if !errors.Is(err, domainerrors.ErrElectionNotClosed) {
		t.Fatalf("expected ErrElectionNotClosed, got %v", err)
	}
}

func TestTallyEngineResultsBeforeTally(t *testing.T) {
	module := tallyengine.NewInMemoryModule(nil, nil)
	seedBoardElection(module)

	_, err := module.Handler.ResultsHandler(context.Background(), "board-2026")
	if !errors.Is(err, domainerrors.ErrTallyNotFound) {
		t.Fatalf("expected ErrTallyNotFound before tally, got %v", err)
	}
}

func TestTallyEngineQuorumStatus(t *testing.T) {
	module := tallyengine.NewInMemoryModule(nil, nil)
	seedBoardElection(module)
	ctx := context.Background()

	status, err := module.Handler.QuorumHandler(ctx, "board-2026")
	if err != nil {
		t.Fatalf("quorum lookup failed: %v", err)
	}
	if !status.QuorumRequired {
		t.Fatalf("quorum must be required at 50 percent")
	}
	// 50% of 6 eligible voters rounds up to 3; 4 ballots participate.
	if status.RequiredParticipatingVoterCount != 3 {
		t.Fatalf("expected required count 3, got %d", status.RequiredParticipatingVoterCount)
	}
	if status.ParticipatingVoterCount != 4 || status.ParticipatingVoteWeightTotal != 4 {
		t.Fatalf("unexpected participation: %+v", status)
	}
	if !status.QuorumMet {
		t.Fatalf("quorum should be met with 4 of 6 voters")
	}
}
