/*
calendar.go - RoundCalendar: date windows for every round

PURPOSE:
  Given a config and a round number, compute the calendar window
  [start, due] of that round under the three date-driven frequencies.
  The calendar never consults the ledger or the participants.

FREQUENCY RULES:
  Weekly:   round n starts startDate + 7(n-1) days; 7-day window, due
            six days after start.
  Monthly:  round n starts startDate advanced n-1 calendar months with
            day clamping (Jan 31 + 1 month = end of February). Due is
            start + grace days, capped one day before the next round.
  Biweekly: "quincenal" rounds follow half-month boundaries. Round
            starts alternate strictly between the 15th and the 1st of
            the next month, walked one boundary at a time so that
            28-31 day months never accumulate drift. Due dates land on
            the 14th and the last calendar day of the month.

  Birthday tandas have no round calendar; passing one here is an
  UnsupportedFrequency error.
*/
package tanda

// Engine tunables. The grace windows come from the original deployment
// and are exported so operators can confirm or override them.
const (
	// DueGraceDays is the monthly payment window after a round starts.
	DueGraceDays = 7

	// DefaultPaymentMethod is stamped on payments toggled without
	// explicit details.
	DefaultPaymentMethod = "transfer"
)

// CalendarOptions overrides engine constants per call. The zero value
// applies the defaults.
type CalendarOptions struct {
	// GraceDays replaces DueGraceDays for monthly due dates when > 0.
	GraceDays int
}

func (o CalendarOptions) graceDays() int {
	if o.GraceDays > 0 {
		return o.GraceDays
	}
	return DueGraceDays
}

// RoundDateRange computes the calendar window of one round.
func RoundDateRange(cfg Config, index int) (Round, error) {
	return RoundDateRangeOpts(cfg, index, CalendarOptions{})
}

// RoundDateRangeOpts is RoundDateRange with explicit options.
func RoundDateRangeOpts(cfg Config, index int, opts CalendarOptions) (Round, error) {
	if !cfg.Frequency.DateDriven() {
		return Round{}, &UnsupportedFrequencyError{Frequency: cfg.Frequency, Op: "round calendar"}
	}
	if cfg.StartDate.IsZero() {
		return Round{}, ErrIncompleteConfig
	}
	if index < 1 || index > cfg.TotalRounds {
		return Round{}, &InvalidRoundIndexError{Index: index, TotalRounds: cfg.TotalRounds}
	}

	switch cfg.Frequency {
	case FrequencyWeekly:
		start := cfg.StartDate.AddDays(7 * (index - 1))
		return Round{Index: index, Start: start, Due: start.AddDays(6)}, nil

	case FrequencyMonthly:
		start := cfg.StartDate.AddMonthsClamped(index - 1)
		next := cfg.StartDate.AddMonthsClamped(index)
		due := start.AddDays(opts.graceDays())
		if cap := next.AddDays(-1); due.After(cap) {
			due = cap
		}
		return Round{Index: index, Start: start, Due: due}, nil

	case FrequencyBiweekly:
		start := cfg.StartDate
		for i := 1; i < index; i++ {
			start = nextQuincena(start)
		}
		return Round{Index: index, Start: start, Due: nextQuincena(start).AddDays(-1)}, nil
	}

	return Round{}, &UnsupportedFrequencyError{Frequency: cfg.Frequency, Op: "round calendar"}
}

// nextQuincena advances one half-month boundary: from the first half of
// a month (day < 15) to the 15th, from the second half to the 1st of
// the next month. Walking boundaries one at a time keeps the alternation
// strict across 28-31 day months.
func nextQuincena(d Date) Date {
	if d.Day() < 15 {
		return NewDate(d.Year(), d.Month(), 15)
	}
	return d.EndOfMonth().AddDays(1)
}

// FinalRound is the window of the last round - the tanda's calendar end.
func FinalRound(cfg Config) (Round, error) {
	return RoundDateRange(cfg, cfg.TotalRounds)
}

// Schedule computes every round window in order. Convenience for
// reporting and export layers.
func Schedule(cfg Config) ([]Round, error) {
	rounds := make([]Round, 0, cfg.TotalRounds)
	for i := 1; i <= cfg.TotalRounds; i++ {
		r, err := RoundDateRange(cfg, i)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}
