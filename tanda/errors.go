/*
errors.go - Centralized error types for the tanda engine

PURPOSE:
  All engine error conditions in one place. Everything here is a local,
  recoverable condition returned to the caller; nothing crashes the
  process. The only user-visible failure mode is a rejected mutation
  ("pay earlier rounds first") - read-side computations never fail.

ERROR CATEGORIES:
  1. Calendar errors   - bad round index, wrong frequency for calendar
  2. Sequencing errors - wrong frequency for rotation variant
  3. Ledger errors     - out-of-order payment attempts
  4. Data warnings     - missing birthdate (non-fatal, surfaced to caller)

USAGE:
  if errors.Is(err, tanda.ErrSequenceViolation) { ... }

  var seq *tanda.SequenceViolationError
  if errors.As(err, &seq) { firstUnpaid := seq.FirstUnpaid }
*/
package tanda

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRoundIndex is returned when a round number falls outside
	// [1, TotalRounds].
	ErrInvalidRoundIndex = errors.New("round index out of range")

	// ErrUnsupportedFrequency is returned when an operation is invoked
	// for the wrong tanda variant: calendar math on a birthday tanda, or
	// birthday sequencing on a date-driven one.
	ErrUnsupportedFrequency = errors.New("unsupported frequency for operation")

	// ErrSequenceViolation is returned when marking a round paid while an
	// earlier round is still unpaid.
	ErrSequenceViolation = errors.New("earlier rounds must be paid first")

	// ErrMissingBirthDate flags a participant without a birthdate in a
	// birthday tanda. It is a data-completeness warning: the participant
	// is excluded from sequencing, never a fatal condition.
	ErrMissingBirthDate = errors.New("participant has no birth date")

	// ErrIncompleteConfig is returned when a config is missing its start
	// date for a date-driven frequency, or has fewer than two rounds.
	ErrIncompleteConfig = errors.New("incomplete tanda configuration")

	// ErrParticipantNotFound is returned by ledger operations that
	// reference an unknown participant.
	ErrParticipantNotFound = errors.New("participant not found")

	// ErrDuplicateNumber is returned by the persistence collaborator when
	// an assigned number is already taken.
	ErrDuplicateNumber = errors.New("assigned number already taken")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRoundIndexError reports a round index outside the valid range.
type InvalidRoundIndexError struct {
	Index       int
	TotalRounds int
}

func (e *InvalidRoundIndexError) Error() string {
	return fmt.Sprintf("round %d out of range [1, %d]", e.Index, e.TotalRounds)
}

func (e *InvalidRoundIndexError) Unwrap() error { return ErrInvalidRoundIndex }

// UnsupportedFrequencyError reports which operation rejected which
// frequency.
type UnsupportedFrequencyError struct {
	Frequency Frequency
	Op        string
}

func (e *UnsupportedFrequencyError) Error() string {
	return fmt.Sprintf("%s does not support frequency %q", e.Op, e.Frequency)
}

func (e *UnsupportedFrequencyError) Unwrap() error { return ErrUnsupportedFrequency }

// SequenceViolationError reports an out-of-order payment attempt with
// the first round that still needs paying.
type SequenceViolationError struct {
	ParticipantID string
	Round         int
	FirstUnpaid   int
}

func (e *SequenceViolationError) Error() string {
	return fmt.Sprintf("cannot pay round %d for %s: round %d is unpaid",
		e.Round, e.ParticipantID, e.FirstUnpaid)
}

func (e *SequenceViolationError) Unwrap() error { return ErrSequenceViolation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is caused by invalid caller
// input rather than an internal failure. The API layer maps these to
// 4xx responses.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRoundIndex) ||
		errors.Is(err, ErrUnsupportedFrequency) ||
		errors.Is(err, ErrSequenceViolation) ||
		errors.Is(err, ErrIncompleteConfig) ||
		errors.Is(err, ErrDuplicateNumber) ||
		errors.Is(err, ErrParticipantNotFound)
}
