/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a tanda, its
	participants, and payment history that demonstrates specific features.

AVAILABLE SCENARIOS:

	weekly-active:      Weekly tanda mid-cycle with current, late, partial
	                    and exempt participants
	quincena:           Quincenal tanda paid on the 1st and 15th
	birthday-rotation:  Turn order assigned by birthdays
	concluded:          Monthly tanda that already finished
	registration-open:  Upcoming tanda with a live invite link

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the tanda config
 3. Create participants
 4. Apply payment toggles in round order
 5. Optionally record details (partials, exemptions) and invite links

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekly-active"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: API handlers sharing the same store calls
  - store/sqlite/sqlite.go: Reset, SaveTanda, ApplyPaymentToggle
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tandamx/tanda-engine/store/sqlite"
	"github.com/tandamx/tanda-engine/tanda"
)

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-active",
		Name:        "Weekly Tanda",
		Description: "Six friends mid-cycle: on-time, late, partial and exempt payments",
		Category:    "payments",
	},
	{
		ID:          "quincena",
		Name:        "Quincena",
		Description: "Quincenal tanda collected on the 1st and 15th of each month",
		Category:    "payments",
	},
	{
		ID:          "birthday-rotation",
		Name:        "Birthday Rotation",
		Description: "Turn order assigned by birthdays instead of dates",
		Category:    "rotation",
	},
	{
		ID:          "concluded",
		Name:        "Concluded Tanda",
		Description: "Monthly tanda that already paid out every turn",
		Category:    "lifecycle",
	},
	{
		ID:          "registration-open",
		Name:        "Open Registration",
		Description: "Upcoming tanda with a live invite link and free spots",
		Category:    "registration",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeData(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeData(w, http.StatusOK, s)
			return
		}
	}

	// Scenario ID exists but not in list (shouldn't happen)
	writeData(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "weekly-active":
		err = h.loadWeeklyActiveScenario(ctx)
	case "quincena":
		err = h.loadQuincenaScenario(ctx)
	case "birthday-rotation":
		err = h.loadBirthdayRotationScenario(ctx)
	case "concluded":
		err = h.loadConcludedScenario(ctx)
	case "registration-open":
		err = h.loadRegistrationOpenScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeData(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWeeklyActiveScenario(ctx context.Context) error {
	today := h.now()

	// Round 3 is in progress: round 1 started 15 days ago.
	cfg := tanda.Config{
		ID:             "tanda-weekly",
		Name:           "Tanda de la Oficina",
		Frequency:      tanda.FrequencyWeekly,
		StartDate:      today.AddDays(-15),
		AmountPerRound: tanda.NewMoneyFromInt(500),
		TotalRounds:    6,
		PaymentMethod:  "transfer",
	}
	if err := h.Store.SaveTanda(ctx, cfg); err != nil {
		return err
	}

	roster := []tanda.Participant{
		{ID: "part-ana", Name: "Ana", Phone: "555-0001", AssignedNumber: 1},
		{ID: "part-beto", Name: "Beto", Phone: "555-0002", AssignedNumber: 2},
		{ID: "part-carla", Name: "Carla", Phone: "555-0003", AssignedNumber: 3},
		{ID: "part-diego", Name: "Diego", Phone: "555-0004", AssignedNumber: 4},
		{ID: "part-elena", Name: "Elena", Phone: "555-0005", AssignedNumber: 5},
		{ID: "part-fede", Name: "Fede", Phone: "555-0006", AssignedNumber: 6},
	}
	for _, p := range roster {
		if err := h.Store.SaveParticipant(ctx, cfg.ID, p); err != nil {
			return err
		}
	}

	// Ana is fully caught up, Beto owes the current round, Carla and
	// Diego are behind. Rounds must be paid in order.
	if err := h.togglePayments(ctx, cfg.ID, "part-ana", today, 1, 2, 3); err != nil {
		return err
	}
	if err := h.togglePayments(ctx, cfg.ID, "part-beto", today, 1, 2); err != nil {
		return err
	}
	if err := h.togglePayments(ctx, cfg.ID, "part-carla", today, 1); err != nil {
		return err
	}

	// Elena paid round 1 and covered half of round 2.
	if err := h.togglePayments(ctx, cfg.ID, "part-elena", today, 1); err != nil {
		return err
	}
	partial := tanda.PaymentRecord{
		Paid:     true,
		Amount:   tanda.NewMoneyFromInt(250),
		PaidDate: today.AddDays(-3),
		Method:   "cash",
		Notes:    "second half next week",
	}
	if _, err := h.Store.ApplyPaymentDetails(ctx, cfg.ID, "part-elena", 2, partial); err != nil {
		return err
	}

	// Fede organizes the tanda and sits out round 1.
	exempt := tanda.PaymentRecord{
		Paid:     true,
		PaidDate: today.AddDays(-14),
		Notes:    "organizer, exempt this turn",
		Exempt:   true,
	}
	if _, err := h.Store.ApplyPaymentDetails(ctx, cfg.ID, "part-fede", 1, exempt); err != nil {
		return err
	}
	return h.togglePayments(ctx, cfg.ID, "part-fede", today, 2, 3)
}

func (h *Handler) loadQuincenaScenario(ctx context.Context) error {
	today := h.now()

	// Start on the 1st of last month so two or three quincenas have
	// already elapsed.
	start := tanda.NewDate(today.Year(), today.Month(), 1).AddMonthsClamped(-1)
	cfg := tanda.Config{
		ID:             "tanda-quincena",
		Name:           "Quincena del Taller",
		Frequency:      tanda.FrequencyBiweekly,
		StartDate:      start,
		AmountPerRound: tanda.NewMoneyFromInt(1000),
		TotalRounds:    8,
		PaymentMethod:  "cash",
	}
	if err := h.Store.SaveTanda(ctx, cfg); err != nil {
		return err
	}

	roster := []tanda.Participant{
		{ID: "part-gloria", Name: "Gloria", Phone: "555-0101", AssignedNumber: 1},
		{ID: "part-hugo", Name: "Hugo", Phone: "555-0102", AssignedNumber: 2},
		{ID: "part-irma", Name: "Irma", Phone: "555-0103", AssignedNumber: 3},
		{ID: "part-julio", Name: "Julio", Phone: "555-0104", AssignedNumber: 4},
	}
	for _, p := range roster {
		if err := h.Store.SaveParticipant(ctx, cfg.ID, p); err != nil {
			return err
		}
	}

	if err := h.togglePayments(ctx, cfg.ID, "part-gloria", today, 1, 2); err != nil {
		return err
	}
	if err := h.togglePayments(ctx, cfg.ID, "part-hugo", today, 1, 2); err != nil {
		return err
	}
	return h.togglePayments(ctx, cfg.ID, "part-irma", today, 1)
}

func (h *Handler) loadBirthdayRotationScenario(ctx context.Context) error {
	today := h.now()
	year := today.Year() - 30

	cfg := tanda.Config{
		ID:             "tanda-cumple",
		Name:           "Tanda de Cumpleaños",
		Frequency:      tanda.FrequencyBirthday,
		AmountPerRound: tanda.NewMoneyFromInt(1000),
		TotalRounds:    8,
		PaymentMethod:  "transfer",
	}
	if err := h.Store.SaveTanda(ctx, cfg); err != nil {
		return err
	}

	roster := []tanda.Participant{
		{ID: "part-karla", Name: "Karla", BirthDate: tanda.NewDate(year, time.January, 12)},
		{ID: "part-luis", Name: "Luis", BirthDate: tanda.NewDate(year, time.February, 28)},
		{ID: "part-mia", Name: "Mia", BirthDate: tanda.NewDate(year, time.April, 3)},
		{ID: "part-nora", Name: "Nora", BirthDate: tanda.NewDate(year, time.May, 19)},
		{ID: "part-oscar", Name: "Oscar", BirthDate: tanda.NewDate(year, time.July, 7)},
		{ID: "part-pablo", Name: "Pablo", BirthDate: tanda.NewDate(year, time.September, 1)},
		{ID: "part-rosa", Name: "Rosa", BirthDate: tanda.NewDate(year, time.October, 24)},
		{ID: "part-sara", Name: "Sara", BirthDate: tanda.NewDate(year, time.December, 16)},
	}
	for i, p := range tanda.AssignNumbersByBirthday(roster) {
		if err := h.Store.SaveParticipant(ctx, cfg.ID, p); err != nil {
			return err
		}
		// First half of the roster has paid their first round.
		if i < len(roster)/2 {
			if err := h.togglePayments(ctx, cfg.ID, p.ID, today, 1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadConcludedScenario(ctx context.Context) error {
	today := h.now()

	cfg := tanda.Config{
		ID:             "tanda-cerrada",
		Name:           "Tanda de Primos",
		Frequency:      tanda.FrequencyMonthly,
		StartDate:      today.AddMonthsClamped(-6),
		AmountPerRound: tanda.NewMoneyFromInt(2000),
		TotalRounds:    4,
		PaymentMethod:  "transfer",
	}
	if err := h.Store.SaveTanda(ctx, cfg); err != nil {
		return err
	}

	roster := []tanda.Participant{
		{ID: "part-tono", Name: "Toño", AssignedNumber: 1},
		{ID: "part-vera", Name: "Vera", AssignedNumber: 2},
		{ID: "part-willy", Name: "Willy", AssignedNumber: 3},
		{ID: "part-xime", Name: "Xime", AssignedNumber: 4},
	}
	for _, p := range roster {
		if err := h.Store.SaveParticipant(ctx, cfg.ID, p); err != nil {
			return err
		}
		for round := 1; round <= cfg.TotalRounds; round++ {
			paidOn := cfg.StartDate.AddMonthsClamped(round - 1)
			if _, err := h.Store.ApplyPaymentToggle(ctx, cfg.ID, p.ID, round, paidOn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadRegistrationOpenScenario(ctx context.Context) error {
	today := h.now()

	cfg := tanda.Config{
		ID:             "tanda-nueva",
		Name:           "Tanda del Barrio",
		Frequency:      tanda.FrequencyWeekly,
		StartDate:      today.AddDays(14),
		AmountPerRound: tanda.NewMoneyFromInt(300),
		TotalRounds:    10,
		PaymentMethod:  "cash",
	}
	if err := h.Store.SaveTanda(ctx, cfg); err != nil {
		return err
	}

	roster := []tanda.Participant{
		{ID: "part-yola", Name: "Yola", Phone: "555-0201", AssignedNumber: 1},
		{ID: "part-zeke", Name: "Zeke", Phone: "555-0202", AssignedNumber: 2},
	}
	for _, p := range roster {
		if err := h.Store.SaveParticipant(ctx, cfg.ID, p); err != nil {
			return err
		}
	}

	// Fixed token so demos can hit /api/register/demo-invite directly.
	link := sqlite.RegistrationLink{
		Token:     "demo-invite",
		TandaID:   cfg.ID,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
		Active:    true,
		CreatedAt: time.Now(),
	}
	return h.Store.SaveLink(ctx, link)
}

// togglePayments marks the given rounds paid in order.
func (h *Handler) togglePayments(ctx context.Context, tandaID, participantID string, today tanda.Date, rounds ...int) error {
	for _, round := range rounds {
		if _, err := h.Store.ApplyPaymentToggle(ctx, tandaID, participantID, round, today); err != nil {
			return err
		}
	}
	return nil
}
