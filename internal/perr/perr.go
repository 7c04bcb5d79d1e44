// Package perr defines the typed error taxonomy shared across pool planner
// stages. Each error carries a Kind so callers (and the orchestrator's exit
// code logic) can distinguish recoverable data problems from fatal
// configuration or invariant failures without string matching.
package perr

import "fmt"

// Kind classifies an error by where in the pipeline it originated and how
// serious it is.
type Kind int

const (
	// KindUnknown is the zero value; never returned deliberately.
	KindUnknown Kind = iota
	// KindParse indicates a malformed TLE or catalog record.
	KindParse
	// KindPropagation indicates SGP4 propagation diverged or failed.
	KindPropagation
	// KindMissingConstellationParameters indicates a satellite's
	// constellation has no configured filter/link-budget parameters.
	KindMissingConstellationParameters
	// KindConstraintViolation indicates a hard optimization constraint
	// (pool size, visibility compliance, temporal distribution) could not
	// be satisfied.
	KindConstraintViolation
	// KindConfig indicates invalid or missing configuration.
	KindConfig
	// KindStageTimeout indicates a pipeline stage exceeded its deadline.
	KindStageTimeout
	// KindInvariantFailure indicates an internal invariant was violated —
	// a bug, not a data problem.
	KindInvariantFailure
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindPropagation:
		return "propagation_error"
	case KindMissingConstellationParameters:
		return "missing_constellation_parameters"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindConfig:
		return "config_error"
	case KindStageTimeout:
		return "stage_timeout"
	case KindInvariantFailure:
		return "invariant_failure"
	default:
		return "unknown_error"
	}
}

// Error is a typed error carrying a Kind, the stage it originated in, and
// an optional wrapped cause.
type Error struct {
	Kind  Kind
	Stage string
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Stage, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Stage, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs an Error with no wrapped cause.
func New(kind Kind, stage, msg string) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg}
}

// Wrap constructs an Error wrapping an existing error.
func Wrap(kind Kind, stage, msg string, cause error) *Error {
	return &Error{Kind: kind, Stage: stage, Msg: msg, Cause: cause}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var pe *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			pe = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if pe == nil {
		return KindUnknown
	}
	return pe.Kind
}

// Fatal reports whether a Kind should abort the whole orchestrator run
// (exit code 3, or 4 for KindConfig) rather than being recorded and
// tolerated.
func Fatal(k Kind) bool {
	switch k {
	case KindConfig, KindInvariantFailure, KindStageTimeout:
		return true
	default:
		return false
	}
}
