package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/adapters/memory"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
)

type recordedMetric struct {
	outcome string
	rounds  int
}

type captureMetrics struct {
	calls []recordedMetric
}

func (m *captureMetrics) TallyCompleted(outcome string, rounds int, _ time.Duration) {
	m.calls = append(m.calls, recordedMetric{outcome: outcome, rounds: rounds})
}

func seededUseCase(t *testing.T, election entities.Election, ballots []entities.Ballot) (TallyUseCase, *memory.Store, *memory.LockRegistry, *captureMetrics) {
	t.Helper()
	store := memory.NewStore([]entities.Election{election})
	store.SetBallots(election.ElectionID, ballots)
	locks := memory.NewLockRegistry()
	metrics := &captureMetrics{}
	uc := TallyUseCase{
		Elections: store,
		Tallies:   store,
		Locks:     locks,
		Clock:     store,
		IDGen:     store,
		Metrics:   metrics,
	}
	return uc, store, locks, metrics
}

func boardElection(status entities.ElectionStatus) entities.Election {
	return entities.Election{
		ElectionID: "e1",
		Name:       "Board 2026",
		Seats:      1,
		Status:     status,
		Candidates: []entities.Candidate{
			{CandidateID: "A", DisplayName: "Alice"},
			{CandidateID: "B", DisplayName: "Bob"},
		},
	}
}

func TestRunTallyCommitsRecordAndOutboxEvent(t *testing.T) {
	uc, store, _, metrics := seededUseCase(t, boardElection(entities.ElectionStatusClosed), []entities.Ballot{
		{BallotID: "b1", Ranking: []string{"A"}, Weight: 1},
		{BallotID: "b2", Ranking: []string{"A"}, Weight: 1},
		{BallotID: "b3", Ranking: []string{"B"}, Weight: 1},
	})

	result, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "e1", ActorID: "ops"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Replayed {
		t.Fatalf("first run must not be a replay")
	}
	if len(result.Record.Result.Elected) != 1 || result.Record.Result.Elected[0].CandidateID != "A" {
		t.Fatalf("expected A elected, got %+v", result.Record.Result.Elected)
	}

	stored, err := store.GetTally(context.Background(), "e1")
	if err != nil || stored.TallyID != result.Record.TallyID {
		t.Fatalf("committed record not retrievable: %+v err %v", stored, err)
	}

	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 1 || pending[0].EventType != EventTypeElectionTallied {
		t.Fatalf("expected one pending tallied event, got %+v", pending)
	}

	if len(metrics.calls) != 1 || metrics.calls[0].outcome != "success" {
		t.Fatalf("expected one success observation, got %+v", metrics.calls)
	}
	if metrics.calls[0].rounds != len(result.Record.Rounds) {
		t.Fatalf("observed rounds %d != record rounds %d", metrics.calls[0].rounds, len(result.Record.Rounds))
	}
}

func TestRunTallyReplaysTalliedElection(t *testing.T) {
	uc, _, _, metrics := seededUseCase(t, boardElection(entities.ElectionStatusClosed), []entities.Ballot{
		{BallotID: "b1", Ranking: []string{"A"}, Weight: 1},
	})

	first, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "e1"})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "e1"})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !second.Replayed {
		t.Fatalf("second run must replay")
	}
	if second.Record.TallyID != first.Record.TallyID {
		t.Fatalf("replay must return the stored record, got %s vs %s", second.Record.TallyID, first.Record.TallyID)
	}
	if len(metrics.calls) != 2 || metrics.calls[1].outcome != "replayed" {
		t.Fatalf("expected replayed observation, got %+v", metrics.calls)
	}
}

func TestRunTallyRejectsOpenElection(t *testing.T) {
	uc, store, _, metrics := seededUseCase(t, boardElection(entities.ElectionStatusOpen), nil)

	_, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "e1"})
	if !errors.Is(err, domainerrors.ErrElectionNotClosed) {
		t.Fatalf("expected ErrElectionNotClosed, got %v", err)
	}
	if _, err := store.GetTally(context.Background(), "e1"); !errors.Is(err, domainerrors.ErrTallyNotFound) {
		t.Fatalf("rejected run must not commit a tally")
	}
	if len(metrics.calls) != 1 || metrics.calls[0].outcome != "failure" {
		t.Fatalf("expected failure observation, got %+v", metrics.calls)
	}
}

func TestRunTallyRejectsConcurrentRun(t *testing.T) {
	uc, _, locks, _ := seededUseCase(t, boardElection(entities.ElectionStatusClosed), nil)

	release, ok := locks.Acquire("e1")
	if !ok {
		t.Fatalf("test lock acquire failed")
	}
	defer release()

	_, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "e1"})
	if !errors.Is(err, domainerrors.ErrTallyInProgress) {
		t.Fatalf("expected ErrTallyInProgress, got %v", err)
	}
}

func TestRunTallyRejectsBlankElectionID(t *testing.T) {
	uc, _, _, _ := seededUseCase(t, boardElection(entities.ElectionStatusClosed), nil)

	_, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "  "})
	if !errors.Is(err, domainerrors.ErrInvalidTallyInput) {
		t.Fatalf("expected ErrInvalidTallyInput, got %v", err)
	}
}

func TestRunTallyUnknownElection(t *testing.T) {
	uc, _, _, _ := seededUseCase(t, boardElection(entities.ElectionStatusClosed), nil)

	_, err := uc.RunTally(context.Background(), RunTallyCommand{ElectionID: "missing"})
	if !errors.Is(err, domainerrors.ErrElectionNotFound) {
		t.Fatalf("expected ErrElectionNotFound, got %v", err)
	}
}
