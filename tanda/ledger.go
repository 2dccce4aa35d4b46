/*
ledger.go - PaymentLedger: payment facts and the sequential-pay invariant

PURPOSE:
  The ledger records who paid what for which round and enforces one
  invariant: payments are strictly sequential per participant. A
  participant cannot pay round 3 while round 2 is unpaid.

CRITICAL BEHAVIORS:
  1. SEQUENTIAL: TogglePaid on round n requires rounds 1..n-1 paid.
  2. NON-DESTRUCTIVE: unmarking a customized record (custom amount,
     notes, exemption, non-default method) keeps the record with
     Paid=false and every other field untouched. Only a fully default
     record is cleared back to "never touched".
  3. IMMUTABLE INPUTS: every operation clones the ledger and returns
     the new snapshot; callers keep the previous state.
  4. DESCRIPTIVE FLAGS: exemption (the round's receiver does not pay
     themselves) and partial amounts are reporting facts only; both
     count as "paid" for sequencing.

WHAT "CUSTOMIZED" MEANS:
  There is no stored touched flag. A record is customized when any
  field differs from the defaults a plain toggle would have written:
  the configured amount, the configured method, no notes, not exempt.
  This makes toggle-on/toggle-off of a fresh cell round-trip to the
  exact empty state.

CONCURRENCY:
  The authoritative ledger lives with the persistence collaborator.
  Mutations must be re-validated against the stored ledger at apply
  time (see store/sqlite), not a client-cached copy, so a stale client
  cannot bypass the sequence check.
*/
package tanda

// CanPay reports whether the participant may mark the given round paid:
// always true for round 1, otherwise only when every earlier round is
// already paid.
func CanPay(ledger Ledger, participantID string, roundIndex int) bool {
	for r := 1; r < roundIndex; r++ {
		if !ledger.IsPaid(participantID, r) {
			return false
		}
	}
	return true
}

// firstUnpaid returns the lowest unpaid round before roundIndex, or 0
// if there is none.
func firstUnpaid(ledger Ledger, participantID string, roundIndex int) int {
	for r := 1; r < roundIndex; r++ {
		if !ledger.IsPaid(participantID, r) {
			return r
		}
	}
	return 0
}

// TogglePaid flips the paid state of one cell and returns the new
// ledger snapshot.
//
// Marking paid: rejected with SequenceViolationError when CanPay is
// false. A never-touched cell gets a default record (configured amount,
// today as paid date, default method). A previously customized cell
// keeps its custom fields and refreshes the paid date.
//
// Unmarking: a customized record is retained with Paid=false and all
// other fields untouched; a fully default record is cleared entirely.
func TogglePaid(ledger Ledger, cfg Config, participantID string, roundIndex int, today Date) (Ledger, error) {
	if roundIndex < 1 || roundIndex > cfg.TotalRounds {
		return ledger, &InvalidRoundIndexError{Index: roundIndex, TotalRounds: cfg.TotalRounds}
	}

	key := LedgerKey{ParticipantID: participantID, Round: roundIndex}
	rec, exists := ledger[key]

	if exists && rec.Paid {
		next := ledger.Clone()
		if isDefaultRecord(rec, cfg) {
			delete(next, key)
			return next, nil
		}
		rec.Paid = false
		next[key] = rec
		return next, nil
	}

	if !CanPay(ledger, participantID, roundIndex) {
		return ledger, &SequenceViolationError{
			ParticipantID: participantID,
			Round:         roundIndex,
			FirstUnpaid:   firstUnpaid(ledger, participantID, roundIndex),
		}
	}

	next := ledger.Clone()
	if !exists {
		rec = PaymentRecord{
			Amount: cfg.AmountPerRound,
			Method: cfg.DefaultMethod(),
		}
	}
	rec.Paid = true
	rec.PaidDate = today
	next[key] = rec
	return next, nil
}

// RecordDetails sets a cell's fields explicitly and returns the new
// snapshot. Details always imply Paid=true and never re-run the
// sequence check: editing an already-paid record (adjusting an amount,
// adding notes, marking the receiver exempt) is an administrative
// correction, not a new payment.
func RecordDetails(ledger Ledger, cfg Config, participantID string, roundIndex int, details PaymentRecord) (Ledger, error) {
	if roundIndex < 1 || roundIndex > cfg.TotalRounds {
		return ledger, &InvalidRoundIndexError{Index: roundIndex, TotalRounds: cfg.TotalRounds}
	}

	details.Paid = true
	if details.Amount.IsZero() && !details.Exempt {
		details.Amount = cfg.AmountPerRound
	}
	if details.Method == "" {
		details.Method = cfg.DefaultMethod()
	}

	next := ledger.Clone()
	next[LedgerKey{ParticipantID: participantID, Round: roundIndex}] = details
	return next, nil
}

// isDefaultRecord reports whether a record carries nothing beyond what
// a plain toggle writes. Such records may be cleared on unmark.
func isDefaultRecord(rec PaymentRecord, cfg Config) bool {
	return rec.Amount.Equal(cfg.AmountPerRound) &&
		rec.Method == cfg.DefaultMethod() &&
		rec.Notes == "" &&
		!rec.Exempt
}

// =============================================================================
// PARTICIPANT STATUS
// =============================================================================

// PayStatus classifies one participant against the current round.
type PayStatus string

const (
	// StatusOnTime: the current round is paid.
	StatusOnTime PayStatus = "current"
	// StatusLate: fewer rounds paid before the current one than elapsed.
	StatusLate PayStatus = "late"
	// StatusPending: caught up on past rounds, current one still open.
	StatusPending PayStatus = "pending"
)

// ParticipantStatus classifies a participant for the given current
// round. A partial or exempt record still counts as paid here; the
// flags are surfaced separately by the stats layer.
func ParticipantStatus(ledger Ledger, participantID string, currentRound int) PayStatus {
	if ledger.IsPaid(participantID, currentRound) {
		return StatusOnTime
	}
	if ledger.PaidCount(participantID, currentRound-1) < currentRound-1 {
		return StatusLate
	}
	return StatusPending
}

// AdvancePaidCount returns how many rounds strictly after currentRound
// the participant has already paid.
func AdvancePaidCount(ledger Ledger, participantID string, currentRound int) int {
	n := 0
	for key, rec := range ledger {
		if key.ParticipantID == participantID && rec.Paid && key.Round > currentRound {
			n++
		}
	}
	return n
}
