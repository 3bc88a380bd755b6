package errors

import "errors"

var (
	ErrInvalidTallyInput    = errors.New("invalid tally input")
	ErrInvalidBallot        = errors.New("structurally invalid ballot")
	ErrInvalidConfiguration = errors.New("invalid election configuration")
	ErrElectionNotFound     = errors.New("election not found")
	ErrElectionNotClosed    = errors.New("election must be closed to tally")
	ErrAlreadyTallied       = errors.New("election is already tallied")
	ErrTallyInProgress      = errors.New("a tally for this election is already running")
	ErrTallyNotFound        = errors.New("tally result not found")
	ErrTallyInvariant       = errors.New("tally accounting invariant violated")
	ErrConflict             = errors.New("tally conflict")
)

// TallyError is the single failure surface exposed to callers when a started
// tally aborts. Nothing is committed when it is returned.
type TallyError struct {
	ElectionID string
	Err        error
}

func (e *TallyError) Error() string {
	if e.ElectionID == "" {
		return "tally failed: " + e.Err.Error()
	}
	return "tally failed for election " + e.ElectionID + ": " + e.Err.Error()
}

func (e *TallyError) Unwrap() error {
	return e.Err
}
