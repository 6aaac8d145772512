package domain

import (
	"errors"
	"fmt"
)

// RejectReason is the machine-readable cause reported through onMoveRejected.
type RejectReason string

const (
	ReasonNone                RejectReason = ""
	ReasonSelfDrop            RejectReason = "SelfDrop"
	ReasonColumnLimitExceeded RejectReason = "ColumnLimitExceeded"
	ReasonBelowMinWidth       RejectReason = "BelowMinWidth"
	ReasonInvalidMove         RejectReason = "InvalidMove"
)

var (
	ErrInvalidMove         = errors.New("invalid move")
	ErrSelfDrop            = errors.New("block dropped onto itself")
	ErrColumnLimitExceeded = errors.New("column limit exceeded")
	ErrBelowMinWidth       = errors.New("column below minimum width")
	ErrNotFound            = errors.New("node not found")
)

// RejectError is returned by tree operations that refuse to run.
// The document passed to the operation is always left untouched.
type RejectError struct {
	Reason RejectReason
	Op     string
	ID     string
	Err    error
}

func (e *RejectError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RejectError) Unwrap() error { return e.Err }

// Is makes every rejection except ColumnLimitExceeded and BelowMinWidth
// match ErrInvalidMove; a self drop is an invalid move.
func (e *RejectError) Is(target error) bool {
	if target == ErrInvalidMove {
		return e.Reason == ReasonInvalidMove || e.Reason == ReasonSelfDrop
	}
	return false
}

// Reject builds a RejectError for op.
func Reject(reason RejectReason, op, id string, err error) error {
	return &RejectError{Reason: reason, Op: op, ID: id, Err: err}
}

// ReasonOf maps err to the reason surfaced to the presentation layer.
func ReasonOf(err error) RejectReason {
	if err == nil {
		return ReasonNone
	}
	var re *RejectError
	if errors.As(err, &re) {
		return re.Reason
	}
	switch {
	case errors.Is(err, ErrSelfDrop):
		return ReasonSelfDrop
	case errors.Is(err, ErrColumnLimitExceeded):
		return ReasonColumnLimitExceeded
	case errors.Is(err, ErrBelowMinWidth):
		return ReasonBelowMinWidth
	default:
		return ReasonInvalidMove
	}
}
