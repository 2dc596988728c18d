package types

import (
	"errors"
	"fmt"
)

var (
	ErrNoSources     = errors.New("no feed sources configured")
	ErrNegativeLimit = errors.New("limit must not be negative")
)

type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type ParseErrorKind int

const (
	UnknownFormat ParseErrorKind = iota
	Malformed
	MissingOrInvalidDate
)

func (k ParseErrorKind) String() string {
	switch k {
	case UnknownFormat:
		return "unknown format"
	case Malformed:
		return "malformed document"
	case MissingOrInvalidDate:
		return "missing or invalid date"
	default:
		return "unknown parse error"
	}
}

// ParseError rejects a whole payload. Index is the offending item or entry
// for MissingOrInvalidDate, -1 otherwise.
type ParseError struct {
	Kind  ParseErrorKind
	Label string
	Index int
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	switch {
	case e.Kind == MissingOrInvalidDate && e.Value == "":
		return fmt.Sprintf("parse %s: item %d: %s", e.Label, e.Index, e.Kind)
	case e.Kind == MissingOrInvalidDate:
		return fmt.Sprintf("parse %s: item %d: %s %q", e.Label, e.Index, e.Kind, e.Value)
	case e.Err != nil:
		return fmt.Sprintf("parse %s: %s: %v", e.Label, e.Kind, e.Err)
	default:
		return fmt.Sprintf("parse %s: %s", e.Label, e.Kind)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type Stage string

const (
	StageFetch     Stage = "fetch"
	StageParse     Stage = "parse"
	StageCancelled Stage = "cancelled"
)

// WorkerError scopes a fetch or parse failure to the source it came from.
type WorkerError struct {
	Source string
	Stage  Stage
	Err    error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("source %s failed at %s: %v", e.Source, e.Stage, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// ParseErrorKindOf reports the kind of the first ParseError in err's chain.
func ParseErrorKindOf(err error) (ParseErrorKind, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
