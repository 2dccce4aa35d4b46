/*
Package tanda implements the core engine for rotating savings groups.

PURPOSE:
  A tanda is a fixed pool of participants who each contribute a fixed
  amount per round and receive the accumulated pool on their assigned
  turn. This package answers the three hard questions about one:

    - What calendar window does round N occupy?        (calendar.go)
    - Whose turn is it right now?                      (rotation.go)
    - Who has paid what, and who may pay next?         (ledger.go)

  plus derived reporting: lifecycle status (status.go) and collection
  statistics (stats.go).

DESIGN PRINCIPLES:
  1. Purity: every function is a function of its inputs plus an explicit
     "today" Date. No ambient clock, no hidden state, no I/O.
  2. Precision: money is decimal.Decimal, never float.
  3. Non-destruction: unmarking a payment never discards customized
     record fields (amount, notes, exemption).
  4. Totality on reads: CurrentRound and Classify never fail; they
     degrade to round 1 / StatusUpcoming on incomplete data.

KEY CONCEPTS IN THIS FILE (types.go):
  - Config: tanda-level configuration (frequency, amount, rounds)
  - Participant: one member with an assigned turn number
  - PaymentRecord / Ledger: per-participant per-round payment facts

SEE ALSO:
  - errors.go: sentinel and structured error types
  - store/sqlite: the persistence collaborator that owns the
    authoritative ledger state
*/
package tanda

import "github.com/shopspring/decimal"

// =============================================================================
// MONEY
// =============================================================================

// Money is a decimal currency amount. The currency itself (MXN in the
// original deployment) is outside the engine's concern.
type Money = decimal.Decimal

func NewMoney(value float64) Money      { return decimal.NewFromFloat(value) }
func NewMoneyFromInt(value int64) Money { return decimal.NewFromInt(value) }

// ParseMoney parses a decimal string amount.
func ParseMoney(s string) (Money, error) { return decimal.NewFromString(s) }

// MustParseMoney is ParseMoney for trusted literals; malformed input
// degrades to zero.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// FREQUENCY
// =============================================================================

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly" // quincenal: half-month boundaries
	FrequencyMonthly  Frequency = "monthly"
	FrequencyBirthday Frequency = "birthday" // turn order driven by birthdates
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyBirthday:
		return true
	}
	return false
}

// DateDriven reports whether rounds are anchored to a start date.
// Birthday tandas have no round calendar; their rotation follows the
// participants' birthdates instead.
func (f Frequency) DateDriven() bool { return f != FrequencyBirthday }

// =============================================================================
// CONFIG
// =============================================================================

// Config is the tanda-level configuration, created once at setup.
//
// INVARIANTS:
//   - TotalRounds >= 2
//   - StartDate set unless Frequency == FrequencyBirthday
type Config struct {
	ID             string
	Name           string
	Frequency      Frequency
	StartDate      Date // zero for birthday tandas
	AmountPerRound Money
	TotalRounds    int
	PaymentMethod  string // default method stamped on toggled payments
}

// Validate checks the construction invariants. Read-side computations
// stay total regardless; this guards mutations and persistence.
func (c Config) Validate() error {
	if !c.Frequency.Valid() {
		return &UnsupportedFrequencyError{Frequency: c.Frequency, Op: "validate"}
	}
	if c.TotalRounds < 2 {
		return ErrIncompleteConfig
	}
	if c.Frequency.DateDriven() && c.StartDate.IsZero() {
		return ErrIncompleteConfig
	}
	return nil
}

// DefaultMethod returns the configured payment method, falling back to
// DefaultPaymentMethod.
func (c Config) DefaultMethod() string {
	if c.PaymentMethod != "" {
		return c.PaymentMethod
	}
	return DefaultPaymentMethod
}

// PoolPerRound is what the round's recipient collects: one contribution
// from every slot.
func (c Config) PoolPerRound() Money {
	return c.AmountPerRound.Mul(decimal.NewFromInt(int64(c.TotalRounds)))
}

// =============================================================================
// PARTICIPANT
// =============================================================================

// Participant is one member of a tanda. AssignedNumber is the turn
// ordering key, unique within the tanda and enforced by the persistence
// collaborator before the engine ever sees it. For birthday tandas the
// number comes from AssignNumbersByBirthday at registration close.
type Participant struct {
	ID             string
	Name           string
	Phone          string
	Email          string
	AssignedNumber int
	BirthDate      Date // required for birthday tandas, zero otherwise
}

// HasBirthDate reports whether the participant can take part in
// birthday sequencing.
func (p Participant) HasBirthDate() bool { return !p.BirthDate.IsZero() }

// =============================================================================
// ROUND - derived, never stored
// =============================================================================

// Round is the calendar window of one turn. Computed on demand by
// RoundDateRange; the ledger references rounds by index only.
type Round struct {
	Index int
	Start Date
	Due   Date
}

// Contains reports whether the date falls within [Start, Due].
func (r Round) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.Due)
}

// =============================================================================
// PAYMENT RECORD & LEDGER
// =============================================================================

// PaymentRecord is one (participant, round) payment fact. Absence of a
// record means "never touched". A record with Paid=false but customized
// fields means "previously customized, currently unmarked" and must be
// preserved, not deleted, when toggled off.
type PaymentRecord struct {
	Paid     bool
	Amount   Money
	PaidDate Date
	Method   string
	Notes    string
	Exempt   bool // round's recipient, not expected to pay
}

// Partial reports whether the record describes a partial payment:
// paid, not exempt, and less than the configured contribution.
func (r PaymentRecord) Partial(cfg Config) bool {
	return r.Paid && !r.Exempt && r.Amount.IsPositive() && r.Amount.LessThan(cfg.AmountPerRound)
}

// LedgerKey identifies one cell of the payment matrix.
type LedgerKey struct {
	ParticipantID string
	Round         int
}

// Ledger is the payment matrix for one tanda: (participant, round) to
// PaymentRecord. It is a value snapshot; all mutations go through the
// ledger operations in ledger.go, which return a new Ledger and leave
// the input untouched.
type Ledger map[LedgerKey]PaymentRecord

// Get returns the record for a cell and whether it exists.
func (l Ledger) Get(participantID string, round int) (PaymentRecord, bool) {
	rec, ok := l[LedgerKey{ParticipantID: participantID, Round: round}]
	return rec, ok
}

// IsPaid reports whether a cell is marked paid.
func (l Ledger) IsPaid(participantID string, round int) bool {
	rec, ok := l.Get(participantID, round)
	return ok && rec.Paid
}

// PaidCount returns how many rounds the participant has paid in
// [1, upTo] (inclusive). upTo <= 0 counts the whole ledger row.
func (l Ledger) PaidCount(participantID string, upTo int) int {
	n := 0
	for key, rec := range l {
		if key.ParticipantID != participantID || !rec.Paid {
			continue
		}
		if upTo > 0 && key.Round > upTo {
			continue
		}
		n++
	}
	return n
}

// Clone returns an independent copy. Ledger operations clone before
// mutating so callers can hold the previous snapshot.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Equal compares two ledgers cell by cell.
func (l Ledger) Equal(other Ledger) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		w, ok := other[k]
		if !ok {
			return false
		}
		if v.Paid != w.Paid || !v.Amount.Equal(w.Amount) || !v.PaidDate.Equal(w.PaidDate) ||
			v.Method != w.Method || v.Notes != w.Notes || v.Exempt != w.Exempt {
			return false
		}
	}
	return true
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Tanda bundles the three inputs every engine question needs. The
// persistence collaborator assembles it; the engine never mutates it.
type Tanda struct {
	Config       Config
	Participants []Participant
	Ledger       Ledger
}
