/*
rotation.go - RotationSequencer: whose turn is it?

PURPOSE:
  Determine the active round for date-driven tandas and the active
  participant set for birthday-driven ones, purely from stored data and
  an explicit "today".

TWO VARIANTS:
  Date-driven: the current round is re-derived on every call as the
  number of whole elapsed frequency intervals since the start date,
  plus one, clamped to [1, TotalRounds]. Never persisted, so the answer
  always reflects the "today" the caller passes.

  Birthday-driven: participants are virtually ordered by AssignedNumber
  (assigned by a prior sort-and-assign step, see
  AssignNumbersByBirthday). The current participant is the one with the
  most recent birthday occurrence this cycle; same-day birthdays are
  all simultaneously current and are never collapsed to one.

DATA WARNINGS:
  A participant without a birthdate in a birthday tanda is excluded
  from sequencing and reported in Rotation.Missing. Not fatal.
*/
package tanda

import "sort"

// RecentBirthdayWindowDays is the grace window during which a passed
// birthday still counts as "recent" even though a newer current
// participant may exist.
const RecentBirthdayWindowDays = 5

// RotationOptions overrides engine constants per call. The zero value
// applies the defaults.
type RotationOptions struct {
	// RecentWindowDays replaces RecentBirthdayWindowDays when > 0.
	RecentWindowDays int
}

func (o RotationOptions) recentWindow() int {
	if o.RecentWindowDays > 0 {
		return o.RecentWindowDays
	}
	return RecentBirthdayWindowDays
}

// =============================================================================
// DATE-DRIVEN ROTATION
// =============================================================================

// CurrentRound derives the active round index for a date-driven tanda.
// It is total on the read side: incomplete data degrades to round 1.
// Calling it for a birthday tanda is an UnsupportedFrequency error -
// birthday tandas have no round arithmetic.
func CurrentRound(cfg Config, today Date) (int, error) {
	if !cfg.Frequency.DateDriven() {
		return 0, &UnsupportedFrequencyError{Frequency: cfg.Frequency, Op: "current round"}
	}
	// Walk round starts from the top: the current round is the highest
	// one that has already started. Walking (rather than dividing by a
	// fixed interval length) is what keeps biweekly and monthly tandas
	// exact across uneven month lengths.
	for n := cfg.TotalRounds; n >= 1; n-- {
		r, err := RoundDateRange(cfg, n)
		if err != nil {
			return 1, nil
		}
		if r.Start.BeforeOrEqual(today) {
			return n, nil
		}
	}
	return 1, nil
}

// AssignedParticipant returns the participant holding the given turn
// number, or nil if the slot is unfilled.
func AssignedParticipant(participants []Participant, roundIndex int) *Participant {
	for i := range participants {
		if participants[i].AssignedNumber == roundIndex {
			return &participants[i]
		}
	}
	return nil
}

// =============================================================================
// BIRTHDAY-DRIVEN ROTATION
// =============================================================================

// BirthdayEntry is one participant's position in the birthday cycle as
// of a given day.
type BirthdayEntry struct {
	Participant Participant

	// Occurrence is this calendar year's birthday (Feb 29 observed on
	// Feb 28 in non-leap years).
	Occurrence Date

	// NextOccurrence is the first birthday on or after today. A birthday
	// falling on today counts as occurring today, not deferred a year.
	NextOccurrence Date

	// DaysSince counts days since the most recent occurrence on or
	// before today (crossing the year boundary when needed).
	DaysSince int

	// DaysUntil counts days to NextOccurrence; zero on the birthday.
	DaysUntil int
}

// Rotation is the full birthday-cycle answer for one day.
type Rotation struct {
	// Current holds every participant whose birthday is the most recent
	// passed (or today's) in the cycle. Same-day birthdays appear
	// together. Empty when no birthday has passed yet this cycle.
	Current []BirthdayEntry

	// Recent holds participants whose birthday occurred within the
	// recent window (inclusive), supporting grace-period display.
	Recent []BirthdayEntry

	// Next holds the upcoming participant(s): the smallest DaysUntil
	// after the current turn, including everyone sharing that exact
	// birthday. When nothing has passed this cycle it holds the
	// earliest upcoming birthday(s).
	Next []BirthdayEntry

	// Missing lists participants excluded from sequencing because they
	// have no birthdate on file.
	Missing []Participant
}

// BirthdayRotation computes the rotation state of a birthday tanda.
// Calling it for a date-driven tanda is an UnsupportedFrequency error.
func BirthdayRotation(cfg Config, participants []Participant, today Date) (Rotation, error) {
	return BirthdayRotationOpts(cfg, participants, today, RotationOptions{})
}

// BirthdayRotationOpts is BirthdayRotation with explicit options.
func BirthdayRotationOpts(cfg Config, participants []Participant, today Date, opts RotationOptions) (Rotation, error) {
	if cfg.Frequency.DateDriven() {
		return Rotation{}, &UnsupportedFrequencyError{Frequency: cfg.Frequency, Op: "birthday rotation"}
	}

	var rot Rotation
	entries := make([]BirthdayEntry, 0, len(participants))
	for _, p := range participants {
		if !p.HasBirthDate() {
			rot.Missing = append(rot.Missing, p)
			continue
		}
		entries = append(entries, birthdayEntry(p, today))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Participant.AssignedNumber < entries[j].Participant.AssignedNumber
	})

	// Scan in ascending assigned-number order and keep the last
	// participant whose birthday this cycle has passed or is today.
	currentIdx := -1
	for i, e := range entries {
		if e.Occurrence.BeforeOrEqual(today) {
			currentIdx = i
		}
	}

	if currentIdx >= 0 {
		cur := entries[currentIdx]
		for _, e := range entries {
			if sameMonthDay(e.Participant.BirthDate, cur.Participant.BirthDate) {
				rot.Current = append(rot.Current, e)
			}
		}
	}

	window := opts.recentWindow()
	for _, e := range entries {
		if e.DaysSince <= window {
			rot.Recent = append(rot.Recent, e)
		}
	}

	rot.Next = nextGroup(entries, currentIdx)
	return rot, nil
}

// nextGroup finds the upcoming birthday group. After the current turn it
// looks strictly past the current participant's number; past the last
// turn of the cycle (or when nothing has passed yet) it wraps to the
// earliest upcoming birthday. Everyone sharing the winning birthday is
// included.
func nextGroup(entries []BirthdayEntry, currentIdx int) []BirthdayEntry {
	candidate := func(e BirthdayEntry) bool { return e.DaysUntil > 0 }
	if currentIdx >= 0 {
		currentNumber := entries[currentIdx].Participant.AssignedNumber
		hasLater := false
		for _, e := range entries {
			if e.Participant.AssignedNumber > currentNumber {
				hasLater = true
				break
			}
		}
		if hasLater {
			candidate = func(e BirthdayEntry) bool {
				return e.Participant.AssignedNumber > currentNumber && e.DaysUntil >= 0
			}
		}
	}

	best := -1
	for _, e := range entries {
		if !candidate(e) {
			continue
		}
		if best < 0 || e.DaysUntil < best {
			best = e.DaysUntil
		}
	}
	if best < 0 {
		return nil
	}

	var group []BirthdayEntry
	for _, e := range entries {
		if candidate(e) && e.DaysUntil == best {
			group = append(group, e)
		}
	}
	return group
}

func birthdayEntry(p Participant, today Date) BirthdayEntry {
	occ := occurrenceInYear(p.BirthDate, today.Year())

	next := occ
	if next.Before(today) {
		next = occurrenceInYear(p.BirthDate, today.Year()+1)
	}

	last := occ
	if last.After(today) {
		last = occurrenceInYear(p.BirthDate, today.Year()-1)
	}

	return BirthdayEntry{
		Participant:    p,
		Occurrence:     occ,
		NextOccurrence: next,
		DaysSince:      DaysBetween(last, today),
		DaysUntil:      DaysBetween(today, next),
	}
}

// occurrenceInYear projects a birthdate into a year, clamping Feb 29 to
// Feb 28 when the year is not a leap year.
func occurrenceInYear(birth Date, year int) Date {
	day := birth.Day()
	if max := daysInMonth(year, birth.Month()); day > max {
		day = max
	}
	return NewDate(year, birth.Month(), day)
}

func sameMonthDay(a, b Date) bool {
	return a.Month() == b.Month() && a.Day() == b.Day()
}

// =============================================================================
// NUMBER ASSIGNMENT
// =============================================================================

// AssignNumbersByBirthday is the one-time sort-and-assign step run when
// a birthday tanda closes registration: participants are ordered by
// birthday (month, then day) and numbered 1..n. Ties share a day but
// not a number; they are broken by name then ID so re-running the
// assignment is deterministic. Participants without a birthdate sort
// last and still receive a number so no slot is left open.
//
// The sequencer only ever consumes AssignedNumber; this function is the
// single place the ordering is derived.
func AssignNumbersByBirthday(participants []Participant) []Participant {
	out := make([]Participant, len(participants))
	copy(out, participants)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.HasBirthDate() != b.HasBirthDate():
			return a.HasBirthDate()
		case a.BirthDate.Month() != b.BirthDate.Month():
			return a.BirthDate.Month() < b.BirthDate.Month()
		case a.BirthDate.Day() != b.BirthDate.Day():
			return a.BirthDate.Day() < b.BirthDate.Day()
		case a.Name != b.Name:
			return a.Name < b.Name
		default:
			return a.ID < b.ID
		}
	})
	for i := range out {
		out[i].AssignedNumber = i + 1
	}
	return out
}
