package tally

import (
	"fmt"
	"math"
	"sort"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
)

// epsilon absorbs float drift in quota comparisons and transfer arithmetic.
const epsilon = 1e-9

// conservationTolerance bounds the allowed drift between votes in
// circulation and the valid-vote total after every round.
const conservationTolerance = 1e-6

type Config struct {
	Seats      int
	Candidates []entities.Candidate
	Groups     []entities.ExclusionGroup
}

// ValidateConfig rejects configurations the engine must never run with.
// These errors surface before any audit event is written.
func ValidateConfig(cfg Config) error {
	if cfg.Seats <= 0 {
		return fmt.Errorf("%w: seats must be positive, got %d", domainerrors.ErrInvalidConfiguration, cfg.Seats)
	}
	if len(cfg.Candidates) == 0 {
		return fmt.Errorf("%w: candidate list is empty", domainerrors.ErrInvalidConfiguration)
	}
	known := make(map[string]bool, len(cfg.Candidates))
	for _, candidate := range cfg.Candidates {
		if candidate.CandidateID == "" {
			return fmt.Errorf("%w: candidate with empty identifier", domainerrors.ErrInvalidConfiguration)
		}
		if known[candidate.CandidateID] {
			return fmt.Errorf("%w: duplicate candidate %q", domainerrors.ErrInvalidConfiguration, candidate.CandidateID)
		}
		known[candidate.CandidateID] = true
	}

	groupNames := make(map[string]bool, len(cfg.Groups))
	groupOf := make(map[string]string)
	for _, group := range cfg.Groups {
		if group.Name == "" {
			return fmt.Errorf("%w: exclusion group with empty name", domainerrors.ErrInvalidConfiguration)
		}
		if groupNames[group.Name] {
			return fmt.Errorf("%w: duplicate exclusion group %q", domainerrors.ErrInvalidConfiguration, group.Name)
		}
		groupNames[group.Name] = true
		if group.MaxElected < 1 {
			return fmt.Errorf("%w: exclusion group %q max_elected must be positive",
				domainerrors.ErrInvalidConfiguration, group.Name)
		}
		if group.MaxElected >= len(group.CandidateIDs) {
			return fmt.Errorf("%w: exclusion group %q max_elected %d covers the whole group",
				domainerrors.ErrInvalidConfiguration, group.Name, group.MaxElected)
		}
		for _, id := range group.CandidateIDs {
			if !known[id] {
				return fmt.Errorf("%w: exclusion group %q references unknown candidate %q",
					domainerrors.ErrInvalidConfiguration, group.Name, id)
			}
			if prev, ok := groupOf[id]; ok {
				return fmt.Errorf("%w: candidate %q belongs to groups %q and %q",
					domainerrors.ErrInvalidConfiguration, id, prev, group.Name)
			}
			groupOf[id] = group.Name
		}
	}
	return nil
}

// Outcome is the full product of one engine run: result, per-round
// snapshots, the complete transfer set, and the recorded audit trail.
type Outcome struct {
	Quota           float64
	Result          entities.Result
	Rounds          []entities.RoundRecord
	Transfers       []entities.Transfer
	Events          []entities.AuditEvent
	ExhaustedWeight float64
}

// Engine executes the counting state machine over normalized ballots. A run
// is single-threaded and deterministic: identical ballots and configuration
// produce identical results, transfers, and audit sequences.
type Engine struct {
	cfg Config
	rec *Recorder
	arb *arbiter
}

func NewEngine(cfg Config, rec *Recorder) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = NewRecorder(nil)
	}
	return &Engine{cfg: cfg, rec: rec, arb: newArbiter(cfg.Groups)}, nil
}

func (e *Engine) Run(norm Normalization) (*Outcome, error) {
	quota := DroopQuota(norm.ValidWeight, e.cfg.Seats)
	candidateIDs := make([]string, 0, len(e.cfg.Candidates))
	for _, candidate := range e.cfg.Candidates {
		candidateIDs = append(candidateIDs, candidate.CandidateID)
	}
	sort.Strings(candidateIDs)

	state := newTallyState(norm, quota, candidateIDs)
	state.Phase = PhaseCounting

	if norm.ValidWeight <= epsilon {
		// No ballot expressed a countable preference. The tally completes
		// immediately with no elected candidates rather than eliminating
		// zero-vote candidates into an arbitrary winner.
		e.recordRoundStart(state, norm, true)
		state.Rounds = append(state.Rounds, entities.RoundRecord{
			Number: 1,
			Totals: state.snapshotTotals(),
			Action: entities.RoundActionNone,
		})
		state.Phase = PhaseComplete
		e.recordCompletion(state, norm)
		return e.outcome(state), nil
	}

	maxRounds := len(candidateIDs) + e.cfg.Seats + 8
	first := true
	for state.Phase == PhaseCounting {
		if state.Round > maxRounds {
			return nil, fmt.Errorf("%w: round limit %d exceeded", domainerrors.ErrTallyInvariant, maxRounds)
		}
		state.blockedEligible = false
		e.recordRoundStart(state, norm, first)
		first = false
		record := entities.RoundRecord{
			Number: state.Round,
			Totals: state.snapshotTotals(),
			Action: entities.RoundActionNone,
		}

		newlyElected := e.electByQuota(state)
		if len(newlyElected) > 0 {
			record.Action = entities.RoundActionElect
			record.Elected = newlyElected
			state.Rounds = append(state.Rounds, record)
			if state.remainingSeats(e.cfg.Seats) == 0 {
				state.Phase = PhaseComplete
				break
			}
			if err := e.advanceAfterElection(state, newlyElected); err != nil {
				return nil, err
			}
			continue
		}

		actives := state.activeIDs()
		remaining := state.remainingSeats(e.cfg.Seats)
		if len(actives) == 0 {
			state.Rounds = append(state.Rounds, record)
			state.Phase = PhaseComplete
			break
		}
		if len(actives) <= remaining {
			seated := e.drainElect(state)
			if len(seated) > 0 {
				record.Action = entities.RoundActionElect
				record.Elected = seated
			}
			state.Rounds = append(state.Rounds, record)
			state.Phase = PhaseComplete
			break
		}

		eliminated := e.chooseElimination(state)
		record.Action = entities.RoundActionEliminate
		record.Eliminated = eliminated
		state.Rounds = append(state.Rounds, record)
		e.rec.Append(entities.AuditCandidateEliminated, map[string]any{
			"candidate": eliminated,
			"round":     state.Round,
			"total":     round4(state.totals[eliminated]),
		})
		state.Eliminated = append(state.Eliminated, entities.SeatResult{
			CandidateID: eliminated,
			Round:       state.Round,
		})
		if err := e.advanceAfterElimination(state, eliminated); err != nil {
			return nil, err
		}
	}

	e.recordCompletion(state, norm)
	return e.outcome(state), nil
}

// electByQuota seats every active candidate at or above quota, highest total
// first, earlier identifier on ties, honoring the exclusion-group arbiter
// and the remaining seat count. Surplus stays with the winner until the
// round advance transfers it.
func (e *Engine) electByQuota(state *TallyState) []string {
	var newly []string
	for state.remainingSeats(e.cfg.Seats) > 0 {
		eligible := e.quotaEligible(state)
		if len(eligible) == 0 {
			break
		}
		pick := ""
		for _, id := range eligible {
			if !e.arb.blocked(id) {
				pick = id
				break
			}
		}
		if pick == "" {
			state.blockedEligible = true
			break
		}

		total := state.totals[pick]
		delete(state.active, pick)
		state.retained[pick] = total
		state.Elected = append(state.Elected, entities.SeatResult{CandidateID: pick, Round: state.Round})
		newly = append(newly, pick)
		e.rec.Append(entities.AuditCandidateElected, map[string]any{
			"candidate": pick,
			"round":     state.Round,
			"total":     round4(total),
			"surplus":   round4(math.Max(0, total-state.Quota)),
			"quota":     round4(state.Quota),
		})
		e.noteGroupCap(pick)
	}
	return newly
}

func (e *Engine) quotaEligible(state *TallyState) []string {
	var eligible []string
	for id := range state.active {
		if state.totals[id] >= state.Quota-epsilon {
			eligible = append(eligible, id)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		ti, tj := state.totals[eligible[i]], state.totals[eligible[j]]
		if math.Abs(ti-tj) > epsilon {
			return ti > tj
		}
		return eligible[i] < eligible[j]
	})
	return eligible
}

// drainElect seats the remaining active candidates without quota when the
// field has shrunk to the open seats. Capped-out candidates are skipped: a
// seat is never granted in violation of an exclusion-group cap, even if that
// leaves seats unfilled.
func (e *Engine) drainElect(state *TallyState) []string {
	actives := state.activeIDs()
	sort.Slice(actives, func(i, j int) bool {
		ti, tj := state.totals[actives[i]], state.totals[actives[j]]
		if math.Abs(ti-tj) > epsilon {
			return ti > tj
		}
		return actives[i] < actives[j]
	})

	var seated []string
	for _, id := range actives {
		if state.remainingSeats(e.cfg.Seats) == 0 {
			break
		}
		if e.arb.blocked(id) {
			continue
		}
		total := state.totals[id]
		delete(state.active, id)
		state.retained[id] = total
		delete(state.totals, id)
		delete(state.bundles, id)
		state.Elected = append(state.Elected, entities.SeatResult{CandidateID: id, Round: state.Round})
		seated = append(seated, id)
		e.rec.Append(entities.AuditCandidateElected, map[string]any{
			"candidate":    id,
			"round":        state.Round,
			"total":        round4(total),
			"surplus":      0.0,
			"quota":        round4(state.Quota),
			"waived_quota": true,
		})
		e.noteGroupCap(id)
	}
	return seated
}

// chooseElimination picks the lowest-total active candidate, later
// identifier on ties. When a round's only quota-eligible candidates were all
// blocked by their group cap, the pool narrows to candidates outside
// capped-out groups so the blocked quota-holders are not knocked out while
// they wait for headroom.
func (e *Engine) chooseElimination(state *TallyState) string {
	pool := state.activeIDs()
	if state.blockedEligible {
		outside := pool[:0:0]
		for _, id := range pool {
			if !e.arb.inCappedGroup(id) {
				outside = append(outside, id)
			}
		}
		if len(outside) > 0 {
			pool = outside
		}
	}

	pick := pool[0]
	for _, id := range pool[1:] {
		switch {
		case state.totals[id] < state.totals[pick]-epsilon:
			pick = id
		case math.Abs(state.totals[id]-state.totals[pick]) <= epsilon && id > pick:
			pick = id
		}
	}
	return pick
}

type transferMove struct {
	from   string
	to     string
	weight float64
}

// advanceAfterElection moves each newly elected candidate's surplus to the
// next live preference of every ballot bundle counted for them, weighted by
// surplus/total, then advances the round.
func (e *Engine) advanceAfterElection(state *TallyState, newlyElected []string) error {
	next := state.Round + 1
	var moves []transferMove
	pending := make(map[string][]*bundle)

	for _, id := range newlyElected {
		total := state.retained[id]
		surplus := total - state.Quota
		if surplus > epsilon {
			ratio := surplus / total
			received := make(map[string]float64)
			exhausted := 0.0
			for _, parcel := range state.bundles[id] {
				moved := parcel.weight * ratio
				if moved <= epsilon {
					continue
				}
				parcel.weight -= moved
				recv, idx := state.nextLivePreference(parcel)
				if recv == "" {
					exhausted += moved
					continue
				}
				pending[recv] = append(pending[recv], &bundle{
					ranking: parcel.ranking,
					idx:     idx,
					weight:  moved,
				})
				received[recv] += moved
			}
			for _, recv := range sortedKeys(received) {
				moves = append(moves, transferMove{from: id, to: recv, weight: received[recv]})
			}
			if exhausted > epsilon {
				moves = append(moves, transferMove{from: id, to: entities.TransferExhausted, weight: exhausted})
			}
		}
		state.retained[id] = state.Quota
		delete(state.totals, id)
		delete(state.bundles, id)
	}

	e.emitCarryOver(state, next)
	e.applyMoves(state, next, moves, pending)
	state.Round = next
	return e.checkConservation(state)
}

// advanceAfterElimination redistributes the eliminated candidate's full
// current total at weight 1.0 per bundle, then advances the round.
func (e *Engine) advanceAfterElimination(state *TallyState, eliminated string) error {
	next := state.Round + 1
	parcels := state.bundles[eliminated]
	delete(state.active, eliminated)
	delete(state.totals, eliminated)
	delete(state.bundles, eliminated)

	var moves []transferMove
	pending := make(map[string][]*bundle)
	received := make(map[string]float64)
	exhausted := 0.0
	for _, parcel := range parcels {
		if parcel.weight <= epsilon {
			continue
		}
		recv, idx := state.nextLivePreference(parcel)
		if recv == "" {
			exhausted += parcel.weight
			continue
		}
		pending[recv] = append(pending[recv], &bundle{
			ranking: parcel.ranking,
			idx:     idx,
			weight:  parcel.weight,
		})
		received[recv] += parcel.weight
	}
	for _, recv := range sortedKeys(received) {
		moves = append(moves, transferMove{from: eliminated, to: recv, weight: received[recv]})
	}
	if exhausted > epsilon {
		moves = append(moves, transferMove{from: eliminated, to: entities.TransferExhausted, weight: exhausted})
	}

	e.emitCarryOver(state, next)
	e.applyMoves(state, next, moves, pending)
	state.Round = next
	return e.checkConservation(state)
}

// emitCarryOver records the provenance edges for weight that stays put
// across the round boundary: active candidates' running totals and elected
// candidates' retained votes. Emitted before incoming moves are applied so
// carried and transferred weight stay distinguishable.
func (e *Engine) emitCarryOver(state *TallyState, next int) {
	for _, id := range state.activeIDs() {
		if state.totals[id] > epsilon {
			state.Transfers = append(state.Transfers, entities.Transfer{
				FromRound: state.Round,
				From:      id,
				ToRound:   next,
				To:        id,
				Weight:    state.totals[id],
			})
		}
	}
	for _, seat := range state.Elected {
		if state.retained[seat.CandidateID] > epsilon {
			state.Transfers = append(state.Transfers, entities.Transfer{
				FromRound: state.Round,
				From:      seat.CandidateID,
				ToRound:   next,
				To:        seat.CandidateID,
				Weight:    state.retained[seat.CandidateID],
			})
		}
	}
}

func (e *Engine) applyMoves(state *TallyState, next int, moves []transferMove, pending map[string][]*bundle) {
	for _, mv := range moves {
		if mv.to == entities.TransferExhausted {
			state.ExhaustedWeight += mv.weight
		} else {
			state.totals[mv.to] += mv.weight
		}
		state.Transfers = append(state.Transfers, entities.Transfer{
			FromRound: state.Round,
			From:      mv.from,
			ToRound:   next,
			To:        mv.to,
			Weight:    mv.weight,
		})
		e.rec.Append(entities.AuditVotesTransferred, map[string]any{
			"from":       mv.from,
			"to":         mv.to,
			"from_round": state.Round,
			"to_round":   next,
			"weight":     round4(mv.weight),
		})
	}
	for recv, parcels := range pending {
		state.bundles[recv] = append(state.bundles[recv], parcels...)
	}
}

// checkConservation verifies that every vote is still accounted for: active
// totals plus retained seats plus exhausted weight must equal the valid-vote
// total. A violation signals an accounting bug and aborts the tally.
func (e *Engine) checkConservation(state *TallyState) error {
	circulating := state.ExhaustedWeight
	for _, total := range state.totals {
		circulating += total
	}
	for _, kept := range state.retained {
		circulating += kept
	}
	tolerance := conservationTolerance * math.Max(1, state.ValidWeight)
	if math.Abs(circulating-state.ValidWeight) > tolerance {
		return fmt.Errorf("%w: %.6f votes in circulation, %.6f valid votes after round %d",
			domainerrors.ErrTallyInvariant, circulating, state.ValidWeight, state.Round)
	}
	return nil
}

func (e *Engine) noteGroupCap(candidateID string) {
	group, members, reached := e.arb.onElected(candidateID)
	if !reached {
		return
	}
	e.rec.Append(entities.AuditGroupCapReached, map[string]any{
		"group":             group,
		"max_elected":       e.arb.maxElected[group],
		"capped_candidates": members,
	})
}

func (e *Engine) recordRoundStart(state *TallyState, norm Normalization, first bool) {
	payload := map[string]any{
		"round":  state.Round,
		"quota":  round4(state.Quota),
		"totals": roundedTotals(state.snapshotTotals()),
	}
	if first {
		payload["seats"] = e.cfg.Seats
		payload["ballots_cast"] = norm.BallotsCast
		payload["valid_votes"] = round4(norm.ValidWeight)
		payload["exhausted_on_entry"] = norm.ExhaustedOnEntry
		payload["duplicates_dropped"] = norm.DuplicatesDropped
		payload["unknown_dropped"] = norm.UnknownDropped
	}
	e.rec.Append(entities.AuditRoundStarted, payload)
}

func (e *Engine) recordCompletion(state *TallyState, norm Normalization) {
	elected := make([]any, 0, len(state.Elected))
	for _, seat := range state.Elected {
		elected = append(elected, map[string]any{"candidate": seat.CandidateID, "round": seat.Round})
	}
	eliminated := make([]any, 0, len(state.Eliminated))
	for _, seat := range state.Eliminated {
		eliminated = append(eliminated, map[string]any{"candidate": seat.CandidateID, "round": seat.Round})
	}
	e.rec.Append(entities.AuditTallyCompleted, map[string]any{
		"quota":            round4(state.Quota),
		"elected":          elected,
		"eliminated":       eliminated,
		"rounds":           len(state.Rounds),
		"seats":            e.cfg.Seats,
		"seats_filled":     len(state.Elected),
		"ballots_cast":     norm.BallotsCast,
		"valid_votes":      round4(norm.ValidWeight),
		"exhausted_weight": round4(state.ExhaustedWeight),
	})
}

func (e *Engine) outcome(state *TallyState) *Outcome {
	return &Outcome{
		Quota: state.Quota,
		Result: entities.Result{
			Quota:      state.Quota,
			Elected:    append([]entities.SeatResult(nil), state.Elected...),
			Eliminated: append([]entities.SeatResult(nil), state.Eliminated...),
		},
		Rounds:          state.Rounds,
		Transfers:       state.Transfers,
		Events:          e.rec.Events(),
		ExhaustedWeight: state.ExhaustedWeight,
	}
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}

func roundedTotals(totals map[string]float64) map[string]any {
	rounded := make(map[string]any, len(totals))
	for id, total := range totals {
		rounded[id] = round4(total)
	}
	return rounded
}
