package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/tally"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// RunTallyCommand requests a tally run for one closed election.
type RunTallyCommand struct {
	ElectionID string
	ActorID    string
}

// RunTallyResult returns the committed tally and a replay marker that the
// transport layer maps to API semantics: a replayed result means the
// election was already tallied and the stored record is returned unchanged.
type RunTallyResult struct {
	Record   entities.TallyRecord
	Replayed bool
}

// TallyUseCase orchestrates the tally run: per-election locking, election
// state checks, ballot normalization, the counting engine, and the
// single-transaction commit of record plus outbox event.
type TallyUseCase struct {
	Elections ports.ElectionRepository
	Tallies   ports.TallyRepository
	Locks     ports.TallyLock
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Metrics   ports.Metrics
	Logger    *slog.Logger
}

// RunTally counts a closed election. The run is all-or-nothing: any engine
// or commit failure leaves the election untouched so the tally can be
// retried after the cause is fixed. Re-running a tallied election replays
// the stored record.
func (uc TallyUseCase) RunTally(ctx context.Context, cmd RunTallyCommand) (RunTallyResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	electionID := strings.TrimSpace(cmd.ElectionID)
	logger.Info("tally run started",
		"event", "tally_run_started",
		"module", "governance/tally-engine",
		"layer", "application",
		"election_id", electionID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	if electionID == "" {
		logger.Warn("tally run validation failed",
			"event", "tally_run_validation_failed",
			"module", "governance/tally-engine",
			"layer", "application",
		)
		return RunTallyResult{}, domainerrors.ErrInvalidTallyInput
	}

	release, ok := uc.Locks.Acquire(electionID)
	if !ok {
		logger.Warn("tally run already in progress",
			"event", "tally_run_in_progress",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
		)
		return RunTallyResult{}, domainerrors.ErrTallyInProgress
	}
	defer release()

	started := uc.now()
	result, err := uc.runLocked(ctx, logger, electionID)
	if err != nil {
		uc.observe("failure", 0, started)
		return RunTallyResult{}, err
	}
	if result.Replayed {
		uc.observe("replayed", len(result.Record.Rounds), started)
		return result, nil
	}
	uc.observe("success", len(result.Record.Rounds), started)
	logger.Info("tally run committed",
		"event", "tally_run_committed",
		"module", "governance/tally-engine",
		"layer", "application",
		"election_id", electionID,
		"tally_id", result.Record.TallyID,
		"rounds", len(result.Record.Rounds),
		"elected", len(result.Record.Result.Elected),
	)
	return result, nil
}

func (uc TallyUseCase) runLocked(ctx context.Context, logger *slog.Logger, electionID string) (RunTallyResult, error) {
	election, err := uc.Elections.GetElection(ctx, electionID)
	if err != nil {
		logger.Error("tally run election lookup failed",
			"event", "tally_run_election_lookup_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return RunTallyResult{}, err
	}

	switch election.Status {
	case entities.ElectionStatusTallied:
		record, err := uc.Tallies.GetTally(ctx, electionID)
		if err != nil {
			return RunTallyResult{}, err
		}
		logger.Info("tally run replayed stored record",
			"event", "tally_run_replayed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"tally_id", record.TallyID,
		)
		return RunTallyResult{Record: record, Replayed: true}, nil
	case entities.ElectionStatusClosed:
		// proceed
	default:
		logger.Warn("tally run rejected, election not closed",
			"event", "tally_run_election_not_closed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"status", string(election.Status),
		)
		return RunTallyResult{}, domainerrors.ErrElectionNotClosed
	}

	ballots, err := uc.Elections.ListBallots(ctx, electionID)
	if err != nil {
		return RunTallyResult{}, err
	}

	record, err := uc.count(ctx, election, ballots)
	if err != nil {
		logger.Error("tally run counting failed",
			"event", "tally_run_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return RunTallyResult{}, err
	}

	message, err := buildTalliedMessage(ctx, uc.IDGen, record)
	if err != nil {
		return RunTallyResult{}, err
	}
	if err := uc.Tallies.CommitTally(ctx, record, message); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyTallied) {
			// lost a cross-process race; the stored record is authoritative
			stored, gerr := uc.Tallies.GetTally(ctx, electionID)
			if gerr == nil {
				return RunTallyResult{Record: stored, Replayed: true}, nil
			}
		}
		logger.Error("tally run commit failed",
			"event", "tally_run_commit_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return RunTallyResult{}, err
	}
	return RunTallyResult{Record: record}, nil
}

func (uc TallyUseCase) count(ctx context.Context, election entities.Election, ballots []entities.Ballot) (entities.TallyRecord, error) {
	cfg := tally.Config{
		Seats:      election.Seats,
		Candidates: election.Candidates,
		Groups:     election.Groups,
	}
	recorder := tally.NewRecorder(uc.now)
	engine, err := tally.NewEngine(cfg, recorder)
	if err != nil {
		return entities.TallyRecord{}, &domainerrors.TallyError{ElectionID: election.ElectionID, Err: err}
	}

	raw := make([]tally.RawBallot, 0, len(ballots))
	for _, ballot := range ballots {
		raw = append(raw, tally.RawBallot{Ranking: ballot.Ranking, Weight: ballot.Weight})
	}
	norm, err := tally.NormalizeBallots(raw, election.CandidateIDs())
	if err != nil {
		return entities.TallyRecord{}, &domainerrors.TallyError{ElectionID: election.ElectionID, Err: err}
	}

	outcome, err := engine.Run(norm)
	if err != nil {
		return entities.TallyRecord{}, &domainerrors.TallyError{ElectionID: election.ElectionID, Err: err}
	}

	tallyID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.TallyRecord{}, err
	}
	return entities.TallyRecord{
		TallyID:          tallyID,
		ElectionID:       election.ElectionID,
		Result:           outcome.Result,
		Rounds:           outcome.Rounds,
		Transfers:        outcome.Transfers,
		Audit:            outcome.Events,
		BallotsCast:      norm.BallotsCast,
		ValidVotes:       norm.ValidWeight,
		ExhaustedOnEntry: norm.ExhaustedOnEntry,
		ExhaustedWeight:  outcome.ExhaustedWeight,
		CompletedAt:      uc.now(),
	}, nil
}

func (uc TallyUseCase) observe(outcome string, rounds int, started time.Time) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.TallyCompleted(outcome, rounds, uc.now().Sub(started))
}

func (uc TallyUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now()
	}
	return time.Now().UTC()
}
