/*
status.go - StatusClassifier: tanda lifecycle

Classifies a tanda as upcoming, active, or concluded for a given day.
Total: incomplete data degrades to upcoming, never an error.
*/
package tanda

// Status is the lifecycle state of a tanda.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusConcluded Status = "concluded"
)

// Classify determines the lifecycle state as of today.
//
// Date-driven tandas run from round 1's start through the final round's
// due date. Birthday tandas run the span of their participants'
// birthdays this cycle: before the earliest is upcoming, after the
// latest is concluded. A birthday tanda with no dated participants is
// always upcoming.
func Classify(cfg Config, participants []Participant, today Date) Status {
	if cfg.Frequency.DateDriven() {
		return classifyDated(cfg, today)
	}
	return classifyBirthday(participants, today)
}

func classifyDated(cfg Config, today Date) Status {
	first, err := RoundDateRange(cfg, 1)
	if err != nil {
		return StatusUpcoming
	}
	last, err := FinalRound(cfg)
	if err != nil {
		return StatusUpcoming
	}
	switch {
	case today.Before(first.Start):
		return StatusUpcoming
	case today.After(last.Due):
		return StatusConcluded
	default:
		return StatusActive
	}
}

func classifyBirthday(participants []Participant, today Date) Status {
	var earliest, latest Date
	for _, p := range participants {
		if !p.HasBirthDate() {
			continue
		}
		occ := occurrenceInYear(p.BirthDate, today.Year())
		if earliest.IsZero() || occ.Before(earliest) {
			earliest = occ
		}
		if latest.IsZero() || occ.After(latest) {
			latest = occ
		}
	}
	if earliest.IsZero() {
		return StatusUpcoming
	}
	switch {
	case today.Before(earliest):
		return StatusUpcoming
	case today.After(latest):
		return StatusConcluded
	default:
		return StatusActive
	}
}
