package tally

import (
	"sort"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
)

type Phase string

const (
	PhaseInitial  Phase = "INITIAL"
	PhaseCounting Phase = "COUNTING"
	PhaseComplete Phase = "COMPLETE"
)

// bundle is a parcel of ballot weight currently counted for one candidate.
// idx points at the holder's position in the ranking; transfers advance it to
// the next live preference.
type bundle struct {
	ranking []string
	idx     int
	weight  float64
}

// TallyState is the explicit value the round engine transitions. Nothing
// outside the engine mutates it; each round transition produces the next
// state in place after its audit events have been recorded.
type TallyState struct {
	Phase Phase
	Round int
	Quota float64

	active   map[string]bool
	totals   map[string]float64
	bundles  map[string][]*bundle
	retained map[string]float64

	Elected    []entities.SeatResult
	Eliminated []entities.SeatResult

	ExhaustedWeight float64
	ValidWeight     float64

	Rounds    []entities.RoundRecord
	Transfers []entities.Transfer

	blockedEligible bool
}

func newTallyState(norm Normalization, quota float64, candidateIDs []string) *TallyState {
	s := &TallyState{
		Phase:       PhaseInitial,
		Round:       1,
		Quota:       quota,
		active:      make(map[string]bool, len(candidateIDs)),
		totals:      make(map[string]float64, len(candidateIDs)),
		bundles:     make(map[string][]*bundle),
		retained:    make(map[string]float64),
		ValidWeight: norm.ValidWeight,
	}
	for _, id := range candidateIDs {
		s.active[id] = true
		s.totals[id] = 0
	}
	for _, ballot := range norm.Ballots {
		first := ballot.Ranking[0]
		parcel := &bundle{ranking: ballot.Ranking, idx: 0, weight: ballot.Weight}
		s.bundles[first] = append(s.bundles[first], parcel)
		s.totals[first] += ballot.Weight
	}
	for _, id := range sortedKeys(s.totals) {
		if s.totals[id] > 0 {
			s.Transfers = append(s.Transfers, entities.Transfer{
				FromRound: 0,
				From:      "",
				ToRound:   1,
				To:        id,
				Weight:    s.totals[id],
			})
		}
	}
	return s
}

// snapshotTotals merges active running totals with elected candidates'
// retained votes, so each round snapshot accounts for all weight still
// attached to candidates.
func (s *TallyState) snapshotTotals() map[string]float64 {
	snapshot := make(map[string]float64, len(s.totals)+len(s.retained))
	for id, total := range s.totals {
		snapshot[id] = total
	}
	for id, kept := range s.retained {
		snapshot[id] = kept
	}
	return snapshot
}

func (s *TallyState) activeIDs() []string {
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *TallyState) remainingSeats(totalSeats int) int {
	return totalSeats - len(s.Elected)
}

// nextLivePreference advances the bundle to its next still-active preference.
// It returns the empty string when the ballot is exhausted.
func (s *TallyState) nextLivePreference(parcel *bundle) (string, int) {
	for idx := parcel.idx + 1; idx < len(parcel.ranking); idx++ {
		if s.active[parcel.ranking[idx]] {
			return parcel.ranking[idx], idx
		}
	}
	return "", -1
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
