package tally

import (
	"fmt"
	"strings"

	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
)

// RawBallot is a ballot as received from the upstream collection layer:
// possibly containing duplicates, unknown candidates, or nothing at all.
type RawBallot struct {
	Ranking []string
	Weight  int
}

// Ballot is a normalized ballot accepted into the count.
type Ballot struct {
	Ranking []string
	Weight  float64
}

// Normalization is the canonicalized ballot set plus the counters the audit
// trail records in place of per-ballot errors.
type Normalization struct {
	Ballots           []Ballot
	BallotsCast       int
	ValidWeight       float64
	ExhaustedOnEntry  int
	DuplicatesDropped int
	UnknownDropped    int
}

// NormalizeBallots validates and canonicalizes raw ballots against the
// election's candidate list. Semantic issues (duplicates, unknown candidates)
// are silently normalized and counted; only structural malformation fails. A
// ballot left with no valid preference is exhausted on entry: it counts
// toward turnout but contributes nothing to any candidate.
func NormalizeBallots(raw []RawBallot, candidateIDs []string) (Normalization, error) {
	known := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		known[id] = true
	}

	norm := Normalization{}
	for i, ballot := range raw {
		if ballot.Weight <= 0 {
			return Normalization{}, fmt.Errorf("%w: ballot %d has non-positive weight %d",
				domainerrors.ErrInvalidBallot, i, ballot.Weight)
		}
		norm.BallotsCast++

		seen := make(map[string]bool, len(ballot.Ranking))
		ranking := make([]string, 0, len(ballot.Ranking))
		for _, id := range ballot.Ranking {
			id = strings.TrimSpace(id)
			if id == "" {
				return Normalization{}, fmt.Errorf("%w: ballot %d has an empty candidate identifier",
					domainerrors.ErrInvalidBallot, i)
			}
			if seen[id] {
				norm.DuplicatesDropped++
				continue
			}
			seen[id] = true
			if !known[id] {
				norm.UnknownDropped++
				continue
			}
			ranking = append(ranking, id)
		}

		if len(ranking) == 0 {
			norm.ExhaustedOnEntry++
			continue
		}
		norm.Ballots = append(norm.Ballots, Ballot{Ranking: ranking, Weight: float64(ballot.Weight)})
		norm.ValidWeight += float64(ballot.Weight)
	}
	return norm, nil
}
