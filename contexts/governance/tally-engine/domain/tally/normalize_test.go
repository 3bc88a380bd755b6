package tally

import (
	"errors"
	"testing"

	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
)

func TestNormalizeDropsUnknownCandidates(t *testing.T) {
	norm, err := NormalizeBallots([]RawBallot{
		{Ranking: []string{"X"}, Weight: 1},
		{Ranking: []string{"A", "X", "B"}, Weight: 1},
	}, []string{"A", "B"})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}

	if norm.BallotsCast != 2 {
		t.Fatalf("expected 2 ballots cast, got %d", norm.BallotsCast)
	}
	// [X] loses its only preference and exhausts on entry.
	if norm.ExhaustedOnEntry != 1 {
		t.Fatalf("expected 1 exhausted on entry, got %d", norm.ExhaustedOnEntry)
	}
	if norm.UnknownDropped != 2 {
		t.Fatalf("expected 2 unknown drops, got %d", norm.UnknownDropped)
	}
	if len(norm.Ballots) != 1 || len(norm.Ballots[0].Ranking) != 2 {
		t.Fatalf("unexpected accepted ballots: %+v", norm.Ballots)
	}
	if norm.ValidWeight != 1 {
		t.Fatalf("expected valid weight 1, got %v", norm.ValidWeight)
	}
}

func TestNormalizeKeepsFirstOfDuplicates(t *testing.T) {
	norm, err := NormalizeBallots([]RawBallot{
		{Ranking: []string{"A", "B", "A", "B"}, Weight: 2},
	}, []string{"A", "B"})
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if norm.DuplicatesDropped != 2 {
		t.Fatalf("expected 2 duplicate drops, got %d", norm.DuplicatesDropped)
	}
	want := []string{"A", "B"}
	got := norm.Ballots[0].Ranking
	if len(got) != len(want) || got[0] != "A" || got[1] != "B" {
		t.Fatalf("expected ranking %v, got %v", want, got)
	}
	if norm.Ballots[0].Weight != 2 {
		t.Fatalf("expected weight 2, got %v", norm.Ballots[0].Weight)
	}
}

func TestNormalizeRejectsStructuralMalformation(t *testing.T) {
	if _, err := NormalizeBallots([]RawBallot{
		{Ranking: []string{"A"}, Weight: 0},
	}, []string{"A"}); !errors.Is(err, domainerrors.ErrInvalidBallot) {
		t.Fatalf("expected ErrInvalidBallot for zero weight, got %v", err)
	}
	if _, err := NormalizeBallots([]RawBallot{
		{Ranking: []string{"A", " "}, Weight: 1},
	}, []string{"A"}); !errors.Is(err, domainerrors.ErrInvalidBallot) {
		t.Fatalf("expected ErrInvalidBallot for empty identifier, got %v", err)
	}
}

func TestDroopQuota(t *testing.T) {
	cases := []struct {
		valid float64
		seats int
		want  float64
	}{
		{4, 1, 3},
		{7, 2, 3},
		{100, 4, 21},
		{0, 2, 1},
		{12, 2, 5},
	}
	for _, tc := range cases {
		if got := DroopQuota(tc.valid, tc.seats); got != tc.want {
			t.Fatalf("DroopQuota(%v, %d) = %v, want %v", tc.valid, tc.seats, got, tc.want)
		}
	}
}
