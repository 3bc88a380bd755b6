package tally

import "math"

// DroopQuota is the vote total a candidate must reach to be elected by quota:
// floor(valid_votes / (seats + 1)) + 1. Pure function of its inputs.
func DroopQuota(validVotes float64, seats int) float64 {
	return math.Floor(validVotes/float64(seats+1)) + 1
}
