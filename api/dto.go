/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

ENVELOPE:
  Every response carries the {success, data|error} envelope so clients
  can branch on one boolean. Errors add a machine-readable detail
  string when the cause is safe to expose.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/tandamx/tanda-engine/store/sqlite"
	"github.com/tandamx/tanda-engine/tanda"
)

// =============================================================================
// RESPONSE ENVELOPE
// =============================================================================

// Envelope wraps every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// TANDA TYPES
// =============================================================================

// TandaDTO represents a tanda configuration in API responses.
type TandaDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Frequency        string `json:"frequency"`
	StartDate        string `json:"start_date,omitempty"`
	AmountPerRound   string `json:"amount_per_round"`
	TotalRounds      int    `json:"total_rounds"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	Status           string `json:"status"`
	CurrentRound     int    `json:"current_round,omitempty"`
	ParticipantCount int    `json:"participant_count"`
}

// SaveTandaRequest creates or updates a tanda.
type SaveTandaRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Frequency      string `json:"frequency"`
	StartDate      string `json:"start_date,omitempty"`
	AmountPerRound string `json:"amount_per_round"`
	TotalRounds    int    `json:"total_rounds"`
	PaymentMethod  string `json:"payment_method,omitempty"`
}

// =============================================================================
// PARTICIPANT TYPES
// =============================================================================

// ParticipantDTO represents a participant in API responses.
type ParticipantDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	AssignedNumber int    `json:"assigned_number"`
	BirthDate      string `json:"birth_date,omitempty"`
}

// SaveParticipantRequest creates or updates a participant.
type SaveParticipantRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	AssignedNumber int    `json:"assigned_number"`
	BirthDate      string `json:"birth_date,omitempty"`
}

// =============================================================================
// PAYMENT TYPES
// =============================================================================

// TogglePaymentRequest flips one ledger cell.
type TogglePaymentRequest struct {
	ParticipantID string `json:"participant_id"`
	Round         int    `json:"round"`
}

// PaymentDetailsRequest writes an explicit payment record.
type PaymentDetailsRequest struct {
	ParticipantID string `json:"participant_id"`
	Round         int    `json:"round"`
	Amount        string `json:"amount,omitempty"`
	PaidDate      string `json:"paid_date,omitempty"`
	Method        string `json:"method,omitempty"`
	Notes         string `json:"notes,omitempty"`
	Exempt        bool   `json:"exempt"`
}

// PaymentCellDTO is one touched ledger cell.
type PaymentCellDTO struct {
	Round    int    `json:"round"`
	Paid     bool   `json:"paid"`
	Amount   string `json:"amount"`
	PaidDate string `json:"paid_date,omitempty"`
	Method   string `json:"method,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Exempt   bool   `json:"exempt"`
	Partial  bool   `json:"partial"`
}

// MatrixRowDTO is one participant's payment row across all rounds.
type MatrixRowDTO struct {
	Participant  ParticipantDTO   `json:"participant"`
	Status       string           `json:"status"`
	PaidCount    int              `json:"paid_count"`
	AdvanceCount int              `json:"advance_count"`
	Cells        []PaymentCellDTO `json:"cells"`
}

// MatrixDTO is the organizer's full payment grid.
type MatrixDTO struct {
	TandaID      string         `json:"tanda_id"`
	CurrentRound int            `json:"current_round"`
	Rounds       []RoundDTO     `json:"rounds,omitempty"`
	Rows         []MatrixRowDTO `json:"rows"`
}

// RoundDTO is one round's date window.
type RoundDTO struct {
	Index int    `json:"index"`
	Start string `json:"start"`
	Due   string `json:"due"`
}

// =============================================================================
// STATS / ROTATION / BOARD TYPES
// =============================================================================

// StatsDTO mirrors tanda.Stats for API responses.
type StatsDTO struct {
	CurrentRound        int             `json:"current_round"`
	TotalRounds         int             `json:"total_rounds"`
	TotalParticipants   int             `json:"total_participants"`
	OnTime              int             `json:"on_time"`
	Late                int             `json:"late"`
	AdvancePayments     int             `json:"advance_payments"`
	PaidThisRound       int             `json:"paid_this_round"`
	CollectedThisRound  string          `json:"collected_this_round"`
	ExpectedThisRound   string          `json:"expected_this_round"`
	TotalCollected      string          `json:"total_collected"`
	TotalExpected       string          `json:"total_expected"`
	CollectedPercent    float64         `json:"collected_percent"`
	CollectedLast30Days string          `json:"collected_last_30_days"`
	AveragePerRound     string          `json:"average_per_round"`
	NextRecipient       *ParticipantDTO `json:"next_recipient,omitempty"`
	NextPayDate         string          `json:"next_pay_date,omitempty"`
}

// RotationEntryDTO is one participant's place in the birthday cycle.
type RotationEntryDTO struct {
	Participant    ParticipantDTO `json:"participant"`
	Occurrence     string         `json:"occurrence"`
	NextOccurrence string         `json:"next_occurrence"`
	DaysSince      int            `json:"days_since"`
	DaysUntil      int            `json:"days_until"`
}

// RotationDTO is the birthday-cycle answer for one day.
type RotationDTO struct {
	Current []RotationEntryDTO `json:"current"`
	Recent  []RotationEntryDTO `json:"recent"`
	Next    []RotationEntryDTO `json:"next"`
	Missing []ParticipantDTO   `json:"missing_birth_date,omitempty"`
}

// BoardRowDTO is one participant on the public board: name, number and
// per-round badges, no contact details.
type BoardRowDTO struct {
	Name           string   `json:"name"`
	AssignedNumber int      `json:"assigned_number"`
	Status         string   `json:"status"`
	Badges         []string `json:"badges"` // per round: "paid", "partial", "exempt", "advance" or ""
}

// BoardDTO is the read-only public snapshot of a tanda.
type BoardDTO struct {
	Name         string        `json:"name"`
	Frequency    string        `json:"frequency"`
	Status       string        `json:"status"`
	CurrentRound int           `json:"current_round"`
	TotalRounds  int           `json:"total_rounds"`
	Rows         []BoardRowDTO `json:"rows"`
}

// =============================================================================
// REGISTRATION TYPES
// =============================================================================

// LinkDTO represents a registration link.
type LinkDTO struct {
	Token     string `json:"token"`
	TandaID   string `json:"tanda_id"`
	ExpiresAt string `json:"expires_at"`
	Active    bool   `json:"active"`
}

// CreateLinkRequest issues a registration link.
type CreateLinkRequest struct {
	TTLHours int `json:"ttl_hours,omitempty"` // default 72
}

// RegisterRequest is a participant signing up through a link.
type RegisterRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	BirthDate string `json:"birth_date,omitempty"`
}

// RegistrationInfoDTO is what a prospective participant sees when they
// open a link.
type RegistrationInfoDTO struct {
	TandaID        string `json:"tanda_id"`
	Name           string `json:"name"`
	Frequency      string `json:"frequency"`
	AmountPerRound string `json:"amount_per_round"`
	TotalRounds    int    `json:"total_rounds"`
	SpotsTaken     int    `json:"spots_taken"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTandaDTO(cfg tanda.Config, participants []tanda.Participant, today tanda.Date) TandaDTO {
	dto := TandaDTO{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Frequency:        string(cfg.Frequency),
		AmountPerRound:   cfg.AmountPerRound.String(),
		TotalRounds:      cfg.TotalRounds,
		PaymentMethod:    cfg.PaymentMethod,
		Status:           string(tanda.Classify(cfg, participants, today)),
		ParticipantCount: len(participants),
	}
	if !cfg.StartDate.IsZero() {
		dto.StartDate = cfg.StartDate.String()
	}
	if n, err := tanda.CurrentRound(cfg, today); err == nil {
		dto.CurrentRound = n
	}
	return dto
}

func toParticipantDTO(p tanda.Participant) ParticipantDTO {
	dto := ParticipantDTO{
		ID:             p.ID,
		Name:           p.Name,
		Phone:          p.Phone,
		Email:          p.Email,
		AssignedNumber: p.AssignedNumber,
	}
	if p.HasBirthDate() {
		dto.BirthDate = p.BirthDate.String()
	}
	return dto
}

func toParticipantDTOs(ps []tanda.Participant) []ParticipantDTO {
	dtos := make([]ParticipantDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toParticipantDTO(p)
	}
	return dtos
}

func toPaymentCellDTO(cfg tanda.Config, round int, rec tanda.PaymentRecord) PaymentCellDTO {
	cell := PaymentCellDTO{
		Round:   round,
		Paid:    rec.Paid,
		Amount:  rec.Amount.String(),
		Method:  rec.Method,
		Notes:   rec.Notes,
		Exempt:  rec.Exempt,
		Partial: rec.Partial(cfg),
	}
	if !rec.PaidDate.IsZero() {
		cell.PaidDate = rec.PaidDate.String()
	}
	return cell
}

func toStatsDTO(s tanda.Stats) StatsDTO {
	dto := StatsDTO{
		CurrentRound:        s.CurrentRound,
		TotalRounds:         s.TotalRounds,
		TotalParticipants:   s.TotalParticipants,
		OnTime:              s.OnTime,
		Late:                s.Late,
		AdvancePayments:     s.AdvancePayments,
		PaidThisRound:       s.PaidThisRound,
		CollectedThisRound:  s.CollectedThisRound.String(),
		ExpectedThisRound:   s.ExpectedThisRound.String(),
		TotalCollected:      s.TotalCollected.String(),
		TotalExpected:       s.TotalExpected.String(),
		CollectedPercent:    s.CollectedPercent,
		CollectedLast30Days: s.CollectedLast30Days.String(),
		AveragePerRound:     s.AveragePerRound.String(),
	}
	if s.NextRecipient != nil {
		p := toParticipantDTO(*s.NextRecipient)
		dto.NextRecipient = &p
	}
	if !s.NextPayDate.IsZero() {
		dto.NextPayDate = s.NextPayDate.String()
	}
	return dto
}

func toRotationEntryDTOs(entries []tanda.BirthdayEntry) []RotationEntryDTO {
	dtos := make([]RotationEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = RotationEntryDTO{
			Participant:    toParticipantDTO(e.Participant),
			Occurrence:     e.Occurrence.String(),
			NextOccurrence: e.NextOccurrence.String(),
			DaysSince:      e.DaysSince,
			DaysUntil:      e.DaysUntil,
		}
	}
	return dtos
}

func toLinkDTO(link sqlite.RegistrationLink) LinkDTO {
	return LinkDTO{
		Token:     link.Token,
		TandaID:   link.TandaID,
		ExpiresAt: link.ExpiresAt.Format(time.RFC3339),
		Active:    link.Active,
	}
}
