/*
stats.go - Collection statistics over a tanda snapshot

PURPOSE:
  Aggregate reporting derived from config + participants + ledger for
  dashboards and the public board: how much has been collected, who is
  behind, who receives next. Pure like everything else here - the
  caller supplies "today".

SEMANTICS:
  - A paid record contributes its recorded amount (partial payments
    count what was actually collected); exempt records contribute
    nothing but still count as paid participants.
  - "Expected so far" covers completed rounds only: every participant
    owes one contribution per round before the current one.
*/
package tanda

import "github.com/shopspring/decimal"

// Stats is the aggregate view of one tanda as of a day.
type Stats struct {
	CurrentRound int
	TotalRounds  int

	TotalParticipants int
	OnTime            int // caught up through the previous round
	Late              int
	AdvancePayments   int // paid cells in rounds after the current one

	// Current-round collection.
	PaidThisRound      int
	CollectedThisRound Money
	ExpectedThisRound  Money

	// Whole-tanda collection through completed rounds.
	TotalCollected   Money
	TotalExpected    Money
	CollectedPercent float64

	// Collected across records paid within the trailing 30 days.
	CollectedLast30Days Money

	// Average collected per completed round; zero before round 2.
	AveragePerRound Money

	// NextRecipient is the participant whose turn the current round is,
	// nil when the slot is unfilled or the tanda is birthday-driven.
	NextRecipient *Participant
	// NextPayDate is the current round's due date (date-driven only).
	NextPayDate Date
}

// ComputeStats aggregates a snapshot. Total: birthday tandas report
// round 1 and skip the calendar-derived fields.
func ComputeStats(t Tanda, today Date) Stats {
	cfg := t.Config
	s := Stats{
		CurrentRound:      1,
		TotalRounds:       cfg.TotalRounds,
		TotalParticipants: len(t.Participants),
		TotalCollected:    decimal.Zero,
		TotalExpected:     decimal.Zero,
	}

	if cfg.Frequency.DateDriven() {
		if n, err := CurrentRound(cfg, today); err == nil {
			s.CurrentRound = n
		}
		if r, err := RoundDateRange(cfg, s.CurrentRound); err == nil {
			s.NextPayDate = r.Due
		}
		s.NextRecipient = AssignedParticipant(t.Participants, s.CurrentRound)
	}

	expected := s.CurrentRound - 1
	for _, p := range t.Participants {
		if t.Ledger.PaidCount(p.ID, 0) >= expected {
			s.OnTime++
		} else {
			s.Late++
		}
		s.AdvancePayments += AdvancePaidCount(t.Ledger, p.ID, s.CurrentRound)

		if rec, ok := t.Ledger.Get(p.ID, s.CurrentRound); ok && rec.Paid {
			s.PaidThisRound++
			if !rec.Exempt {
				s.CollectedThisRound = s.CollectedThisRound.Add(recordAmount(rec, cfg))
			}
		}
	}

	s.ExpectedThisRound = cfg.AmountPerRound.Mul(decimal.NewFromInt(int64(len(t.Participants))))

	cutoff := today.AddDays(-30)
	for _, rec := range t.Ledger {
		if !rec.Paid || rec.Exempt {
			continue
		}
		amount := recordAmount(rec, cfg)
		s.TotalCollected = s.TotalCollected.Add(amount)
		if !rec.PaidDate.IsZero() && rec.PaidDate.After(cutoff) {
			s.CollectedLast30Days = s.CollectedLast30Days.Add(amount)
		}
	}

	completed := s.CurrentRound - 1
	s.TotalExpected = cfg.AmountPerRound.
		Mul(decimal.NewFromInt(int64(len(t.Participants)))).
		Mul(decimal.NewFromInt(int64(completed)))
	if s.TotalExpected.IsPositive() {
		pct, _ := s.TotalCollected.Div(s.TotalExpected).Mul(decimal.NewFromInt(100)).Float64()
		s.CollectedPercent = pct
	}
	if completed > 0 {
		s.AveragePerRound = s.TotalCollected.Div(decimal.NewFromInt(int64(completed)))
	} else {
		s.AveragePerRound = decimal.Zero
	}

	return s
}

// recordAmount falls back to the configured contribution when a paid
// record was stored without an explicit amount.
func recordAmount(rec PaymentRecord, cfg Config) Money {
	if rec.Amount.IsPositive() {
		return rec.Amount
	}
	return cfg.AmountPerRound
}
