package etl

import (
	"errors"
	"time"

	"rosteretl/internal/fetch"
)

// ErrEmptyResult is returned (wrapped with the stage) when a run has nothing to write.
var ErrEmptyResult = errors.New("empty result")

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeEmpty
	OutcomeConnectionFailure
	OutcomeHTTPStatus
	OutcomeUnexpected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeConnectionFailure:
		return "connection_failure"
	case OutcomeHTTPStatus:
		return "http_status"
	case OutcomeUnexpected:
		return "unexpected"
	}
	return "unknown"
}

const (
	StageFetch     = "fetch"
	StageNormalize = "normalize"
	StageCoerce    = "coerce"
	StageJoin      = "join"
	StageWrite     = "write"
)

// Result describes how a single run ended.
type Result struct {
	Outcome Outcome
	// Stage is the stage the run stopped at, empty on success.
	Stage string
	Err   error

	RosterRows    int
	WorkRows      int
	JoinedRows    int
	RosterColumns []string
	WorkColumns   []string

	// Destination is a human readable description of where the rows were written.
	Destination string
	RunID       string
	Duration    time.Duration
}

func (r Result) Ok() bool {
	return r.Outcome == OutcomeSuccess
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrEmptyResult):
		return OutcomeEmpty
	case errors.Is(err, fetch.ErrConnection):
		return OutcomeConnectionFailure
	case errors.Is(err, fetch.ErrHTTPStatus):
		return OutcomeHTTPStatus
	default:
		return OutcomeUnexpected
	}
}
