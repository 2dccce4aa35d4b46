/*
handlers.go - HTTP API handlers for the tanda engine

PURPOSE:
  Exposes the tanda engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic. All date-sensitive
  endpoints derive "today" from the handler clock so the engine itself
  stays pure and the tests stay deterministic.

ENDPOINTS:
  Tandas:
    GET    /api/tandas                  List all tandas
    POST   /api/tandas                  Create tanda
    GET    /api/tandas/{id}             Get tanda with participants
    PUT    /api/tandas/{id}             Update tanda config
    DELETE /api/tandas/{id}             Delete tanda

  Participants:
    GET    /api/tandas/{id}/participants
    POST   /api/tandas/{id}/participants
    PUT    /api/tandas/{id}/participants/{pid}
    DELETE /api/tandas/{id}/participants/{pid}

  Payments:
    POST   /api/tandas/{id}/payments/toggle   Flip one cell
    PUT    /api/tandas/{id}/payments          Explicit record
    GET    /api/tandas/{id}/payments/matrix   Organizer grid

  Views:
    GET    /api/tandas/{id}/stats       Collection statistics
    GET    /api/tandas/{id}/status      Lifecycle status
    GET    /api/tandas/{id}/rotation    Birthday rotation
    GET    /api/tandas/{id}/board       Public board (no contact data)

  Registration:
    POST   /api/tandas/{id}/links               Issue sign-up link
    POST   /api/tandas/{id}/close-registration  Freeze roster, assign numbers
    GET    /api/register/{token}                Link preview
    POST   /api/register/{token}                Sign up through link

ERROR HANDLING:
  Errors are returned in the {success:false, error} envelope with the
  appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown tanda, participant or token
  - 409: Sequence violation, duplicate turn number
  - 500: Internal errors
*/
package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tandamx/tanda-engine/store/sqlite"
	"github.com/tandamx/tanda-engine/tanda"
)

const defaultLinkTTL = 72 * time.Hour

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store

	// now supplies "today" for every engine call; overridable in tests.
	now func() tanda.Date

	// currentScenario tracks the last demo scenario loaded, if any.
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store: store,
		now:   tanda.Today,
	}
}

// =============================================================================
// TANDA HANDLERS
// =============================================================================

// ListTandas returns all tandas with their computed status.
func (h *Handler) ListTandas(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Store.ListConfigs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tandas", err)
		return
	}

	today := h.now()
	dtos := make([]TandaDTO, 0, len(configs))
	for _, cfg := range configs {
		participants, err := h.Store.ListParticipants(r.Context(), cfg.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
			return
		}
		dtos = append(dtos, toTandaDTO(cfg, participants, today))
	}

	writeData(w, http.StatusOK, dtos)
}

// CreateTanda creates a new tanda.
func (h *Handler) CreateTanda(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.decodeTandaConfig(w, r, "")
	if !ok {
		return
	}
	if cfg.ID == "" {
		cfg.ID = fmt.Sprintf("tanda-%d", time.Now().UnixNano())
	}

	if err := h.Store.SaveTanda(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create tanda", err)
		return
	}

	writeData(w, http.StatusCreated, toTandaDTO(cfg, nil, h.now()))
}

// GetTanda returns one tanda with its roster.
func (h *Handler) GetTanda(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snapshot, err := h.Store.GetTanda(r.Context(), id)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	type tandaWithRoster struct {
		TandaDTO
		Participants []ParticipantDTO `json:"participants"`
	}
	writeData(w, http.StatusOK, tandaWithRoster{
		TandaDTO:     toTandaDTO(snapshot.Config, snapshot.Participants, h.now()),
		Participants: toParticipantDTOs(snapshot.Participants),
	})
}

// UpdateTanda replaces a tanda's configuration.
func (h *Handler) UpdateTanda(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetConfig(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	cfg, ok := h.decodeTandaConfig(w, r, id)
	if !ok {
		return
	}

	if err := h.Store.SaveTanda(r.Context(), cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update tanda", err)
		return
	}

	participants, _ := h.Store.ListParticipants(r.Context(), id)
	writeData(w, http.StatusOK, toTandaDTO(cfg, participants, h.now()))
}

// DeleteTanda removes a tanda and all its data.
func (h *Handler) DeleteTanda(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Store.DeleteTanda(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to delete tanda", err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"deleted": id})
}

// decodeTandaConfig parses and validates a tanda config body. forceID
// pins the ID on updates so the body cannot rename the resource.
func (h *Handler) decodeTandaConfig(w http.ResponseWriter, r *http.Request, forceID string) (tanda.Config, bool) {
	var req SaveTandaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return tanda.Config{}, false
	}

	cfg := tanda.Config{
		ID:            req.ID,
		Name:          req.Name,
		Frequency:     tanda.Frequency(req.Frequency),
		TotalRounds:   req.TotalRounds,
		PaymentMethod: req.PaymentMethod,
	}
	if forceID != "" {
		cfg.ID = forceID
	}

	if !cfg.Frequency.Valid() {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Unknown frequency %q", req.Frequency), nil)
		return tanda.Config{}, false
	}
	if req.StartDate != "" {
		d, err := tanda.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
			return tanda.Config{}, false
		}
		cfg.StartDate = d
	}
	amount, err := tanda.ParseMoney(req.AmountPerRound)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount_per_round", err)
		return tanda.Config{}, false
	}
	cfg.AmountPerRound = amount

	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid tanda configuration", err)
		return tanda.Config{}, false
	}
	return cfg, true
}

// =============================================================================
// PARTICIPANT HANDLERS
// =============================================================================

// ListParticipants returns a tanda's roster.
func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Store.GetConfig(r.Context(), id); err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	participants, err := h.Store.ListParticipants(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}

	writeData(w, http.StatusOK, toParticipantDTOs(participants))
}

// CreateParticipant adds a participant to a tanda.
func (h *Handler) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	h.saveParticipant(w, r, "")
}

// UpdateParticipant updates an existing participant.
func (h *Handler) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	h.saveParticipant(w, r, chi.URLParam(r, "pid"))
}

func (h *Handler) saveParticipant(w http.ResponseWriter, r *http.Request, forceID string) {
	tandaID := chi.URLParam(r, "id")

	if _, err := h.Store.GetConfig(r.Context(), tandaID); err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	var req SaveParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Participant name is required", nil)
		return
	}

	p := tanda.Participant{
		ID:             req.ID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		AssignedNumber: req.AssignedNumber,
	}
	if forceID != "" {
		p.ID = forceID
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("part-%d", time.Now().UnixNano())
	}
	if req.BirthDate != "" {
		d, err := tanda.ParseDate(req.BirthDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid birth_date format (use YYYY-MM-DD)", err)
			return
		}
		p.BirthDate = d
	}

	if err := h.Store.SaveParticipant(r.Context(), tandaID, p); err != nil {
		if errors.Is(err, tanda.ErrDuplicateNumber) {
			writeError(w, http.StatusConflict,
				fmt.Sprintf("Number %d is already taken", p.AssignedNumber), err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to save participant", err)
		return
	}

	status := http.StatusOK
	if forceID == "" {
		status = http.StatusCreated
	}
	writeData(w, status, toParticipantDTO(p))
}

// DeleteParticipant removes a participant and their payment history.
func (h *Handler) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")
	pid := chi.URLParam(r, "pid")

	if err := h.Store.DeleteParticipant(r.Context(), tandaID, pid); err != nil {
		if errors.Is(err, tanda.ErrParticipantNotFound) {
			writeError(w, http.StatusNotFound, "Participant not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete participant", err)
		return
	}

	writeData(w, http.StatusOK, map[string]string{"deleted": pid})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// TogglePayment flips one ledger cell through the engine.
func (h *Handler) TogglePayment(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")

	var req TogglePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ledger, err := h.Store.ApplyPaymentToggle(r.Context(), tandaID, req.ParticipantID, req.Round, h.now())
	if err != nil {
		writePaymentError(w, err)
		return
	}

	h.writeParticipantRow(w, r, tandaID, req.ParticipantID, ledger)
}

// RecordPayment writes an explicit payment record (amount, date,
// method, notes, exemption) for one cell.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")

	var req PaymentDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	details := tanda.PaymentRecord{
		Method: req.Method,
		Notes:  req.Notes,
		Exempt: req.Exempt,
	}
	if req.Amount != "" {
		amount, err := tanda.ParseMoney(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		details.Amount = amount
	}
	if req.PaidDate != "" {
		d, err := tanda.ParseDate(req.PaidDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_date format (use YYYY-MM-DD)", err)
			return
		}
		details.PaidDate = d
	} else {
		details.PaidDate = h.now()
	}

	ledger, err := h.Store.ApplyPaymentDetails(r.Context(), tandaID, req.ParticipantID, req.Round, details)
	if err != nil {
		writePaymentError(w, err)
		return
	}

	h.writeParticipantRow(w, r, tandaID, req.ParticipantID, ledger)
}

// writeParticipantRow responds with the updated row for the cell's
// owner so the client can refresh in place.
func (h *Handler) writeParticipantRow(w http.ResponseWriter, r *http.Request, tandaID, participantID string, ledger tanda.Ledger) {
	cfg, err := h.Store.GetConfig(r.Context(), tandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	participants, err := h.Store.ListParticipants(r.Context(), tandaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}

	var owner *tanda.Participant
	for i := range participants {
		if participants[i].ID == participantID {
			owner = &participants[i]
			break
		}
	}
	if owner == nil {
		writeError(w, http.StatusNotFound, "Participant not found", nil)
		return
	}

	currentRound := 1
	if n, err := tanda.CurrentRound(cfg, h.now()); err == nil {
		currentRound = n
	}
	writeData(w, http.StatusOK, h.matrixRow(cfg, *owner, ledger, currentRound))
}

// PaymentMatrix returns the organizer grid: every participant's cells
// across every round, plus the round calendar for date-driven tandas.
func (h *Handler) PaymentMatrix(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")

	snapshot, err := h.Store.GetTanda(r.Context(), tandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	cfg := snapshot.Config

	currentRound := 1
	if n, err := tanda.CurrentRound(cfg, h.now()); err == nil {
		currentRound = n
	}

	matrix := MatrixDTO{
		TandaID:      tandaID,
		CurrentRound: currentRound,
		Rows:         make([]MatrixRowDTO, 0, len(snapshot.Participants)),
	}
	if rounds, err := tanda.Schedule(cfg); err == nil {
		matrix.Rounds = make([]RoundDTO, len(rounds))
		for i, round := range rounds {
			matrix.Rounds[i] = RoundDTO{
				Index: round.Index,
				Start: round.Start.String(),
				Due:   round.Due.String(),
			}
		}
	}
	for _, p := range snapshot.Participants {
		matrix.Rows = append(matrix.Rows, h.matrixRow(cfg, p, snapshot.Ledger, currentRound))
	}

	writeData(w, http.StatusOK, matrix)
}

func (h *Handler) matrixRow(cfg tanda.Config, p tanda.Participant, ledger tanda.Ledger, currentRound int) MatrixRowDTO {
	row := MatrixRowDTO{
		Participant:  toParticipantDTO(p),
		Status:       string(tanda.ParticipantStatus(ledger, p.ID, currentRound)),
		PaidCount:    ledger.PaidCount(p.ID, 0),
		AdvanceCount: tanda.AdvancePaidCount(ledger, p.ID, currentRound),
	}
	for round := 1; round <= cfg.TotalRounds; round++ {
		if rec, ok := ledger.Get(p.ID, round); ok {
			row.Cells = append(row.Cells, toPaymentCellDTO(cfg, round, rec))
		}
	}
	return row
}

// =============================================================================
// VIEW HANDLERS
// =============================================================================

// GetStats returns the aggregate collection statistics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.GetTanda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	writeData(w, http.StatusOK, toStatsDTO(tanda.ComputeStats(snapshot, h.now())))
}

// GetStatus returns the lifecycle status of a tanda.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.GetTanda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	status := tanda.Classify(snapshot.Config, snapshot.Participants, h.now())
	writeData(w, http.StatusOK, map[string]string{"status": string(status)})
}

// GetRotation returns the birthday rotation state. Date-driven tandas
// get a 400: their turn order is the round calendar.
func (h *Handler) GetRotation(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.GetTanda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	rot, err := tanda.BirthdayRotation(snapshot.Config, snapshot.Participants, h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Rotation is only available for birthday tandas", err)
		return
	}

	writeData(w, http.StatusOK, RotationDTO{
		Current: toRotationEntryDTOs(rot.Current),
		Recent:  toRotationEntryDTOs(rot.Recent),
		Next:    toRotationEntryDTOs(rot.Next),
		Missing: toParticipantDTOs(rot.Missing),
	})
}

// GetBoard returns the public read-only snapshot: names, numbers and
// payment badges, no phone numbers or emails.
func (h *Handler) GetBoard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.GetTanda(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	cfg := snapshot.Config
	today := h.now()

	currentRound := 1
	if n, err := tanda.CurrentRound(cfg, today); err == nil {
		currentRound = n
	}

	board := BoardDTO{
		Name:         cfg.Name,
		Frequency:    string(cfg.Frequency),
		Status:       string(tanda.Classify(cfg, snapshot.Participants, today)),
		CurrentRound: currentRound,
		TotalRounds:  cfg.TotalRounds,
		Rows:         make([]BoardRowDTO, 0, len(snapshot.Participants)),
	}

	for _, p := range snapshot.Participants {
		row := BoardRowDTO{
			Name:           p.Name,
			AssignedNumber: p.AssignedNumber,
			Status:         string(tanda.ParticipantStatus(snapshot.Ledger, p.ID, currentRound)),
			Badges:         make([]string, cfg.TotalRounds),
		}
		for round := 1; round <= cfg.TotalRounds; round++ {
			row.Badges[round-1] = boardBadge(cfg, snapshot.Ledger, p.ID, round, currentRound)
		}
		board.Rows = append(board.Rows, row)
	}

	writeData(w, http.StatusOK, board)
}

func boardBadge(cfg tanda.Config, ledger tanda.Ledger, participantID string, round, currentRound int) string {
	rec, ok := ledger.Get(participantID, round)
	if !ok || !rec.Paid {
		return ""
	}
	switch {
	case rec.Exempt:
		return "exempt"
	case rec.Partial(cfg):
		return "partial"
	case round > currentRound:
		return "advance"
	default:
		return "paid"
	}
}

// =============================================================================
// REGISTRATION HANDLERS
// =============================================================================

// CreateLink issues a shareable registration link for a tanda.
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")

	if _, err := h.Store.GetConfig(r.Context(), tandaID); err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}

	var req CreateLinkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	ttl := defaultLinkTTL
	if req.TTLHours > 0 {
		ttl = time.Duration(req.TTLHours) * time.Hour
	}

	link := sqlite.RegistrationLink{
		Token:     newToken(),
		TandaID:   tandaID,
		ExpiresAt: time.Now().UTC().Add(ttl),
		Active:    true,
	}
	if err := h.Store.SaveLink(r.Context(), link); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create link", err)
		return
	}

	writeData(w, http.StatusCreated, toLinkDTO(link))
}

// GetRegistration shows a prospective participant what they are
// joining. Unknown, expired and revoked tokens all look the same.
func (h *Handler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	link, err := h.Store.GetLink(r.Context(), token, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusNotFound, "Registration link not found", nil)
		return
	}

	cfg, err := h.Store.GetConfig(r.Context(), link.TandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	participants, err := h.Store.ListParticipants(r.Context(), link.TandaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}

	writeData(w, http.StatusOK, RegistrationInfoDTO{
		TandaID:        cfg.ID,
		Name:           cfg.Name,
		Frequency:      string(cfg.Frequency),
		AmountPerRound: cfg.AmountPerRound.String(),
		TotalRounds:    cfg.TotalRounds,
		SpotsTaken:     len(participants),
	})
}

// Register signs a participant up through a link.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	link, err := h.Store.GetLink(r.Context(), token, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusNotFound, "Registration link not found", nil)
		return
	}

	open, err := h.Store.RegistrationOpen(r.Context(), link.TandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	if !open {
		writeError(w, http.StatusConflict, "Registration is closed for this tanda", nil)
		return
	}

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}

	p := tanda.Participant{
		ID:    fmt.Sprintf("part-%d", time.Now().UnixNano()),
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}
	if req.BirthDate != "" {
		d, err := tanda.ParseDate(req.BirthDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid birth_date format (use YYYY-MM-DD)", err)
			return
		}
		p.BirthDate = d
	}

	cfg, err := h.Store.GetConfig(r.Context(), link.TandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	if cfg.Frequency == tanda.FrequencyBirthday && !p.HasBirthDate() {
		writeError(w, http.StatusBadRequest, "Birth date is required for this tanda", tanda.ErrMissingBirthDate)
		return
	}

	// Self-registration takes the next free number; birthday tandas
	// re-derive the whole order at close-registration anyway.
	participants, err := h.Store.ListParticipants(r.Context(), link.TandaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}
	if len(participants) >= cfg.TotalRounds {
		writeError(w, http.StatusConflict, "Tanda is full", nil)
		return
	}
	p.AssignedNumber = nextFreeNumber(participants, cfg.TotalRounds)

	if err := h.Store.SaveParticipant(r.Context(), link.TandaID, p); err != nil {
		if errors.Is(err, tanda.ErrDuplicateNumber) {
			writeError(w, http.StatusConflict, "Tanda is full", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register", err)
		return
	}

	writeData(w, http.StatusCreated, toParticipantDTO(p))
}

// CloseRegistration freezes the roster. For birthday tandas it also
// derives the final turn order from birthdays.
func (h *Handler) CloseRegistration(w http.ResponseWriter, r *http.Request) {
	tandaID := chi.URLParam(r, "id")

	cfg, err := h.Store.GetConfig(r.Context(), tandaID)
	if err != nil {
		writeStoreError(w, "Failed to get tanda", err)
		return
	}
	participants, err := h.Store.ListParticipants(r.Context(), tandaID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list participants", err)
		return
	}

	if cfg.Frequency == tanda.FrequencyBirthday {
		participants = tanda.AssignNumbersByBirthday(participants)
	}

	if err := h.Store.CloseRegistration(r.Context(), tandaID, participants); err != nil {
		writeStoreError(w, "Failed to close registration", err)
		return
	}

	// Issued links are dead once the roster is frozen.
	links, err := h.Store.ListLinks(r.Context(), tandaID)
	if err == nil {
		for _, link := range links {
			h.Store.DeactivateLink(r.Context(), link.Token)
		}
	}

	writeData(w, http.StatusOK, toParticipantDTOs(participants))
}

func nextFreeNumber(participants []tanda.Participant, totalRounds int) int {
	taken := make(map[int]bool, len(participants))
	for _, p := range participants {
		taken[p.AssignedNumber] = true
	}
	for n := 1; n <= totalRounds; n++ {
		if !taken[n] {
			return n
		}
	}
	return 0
}

func newToken() string {
	buf := make([]byte, 16)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := Envelope{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeStoreError maps store lookups to 404 vs 500.
func writeStoreError(w http.ResponseWriter, message string, err error) {
	if errors.Is(err, sqlite.ErrTandaNotFound) {
		writeError(w, http.StatusNotFound, "Tanda not found", nil)
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}

// writePaymentError maps engine rejections to client statuses.
func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sqlite.ErrTandaNotFound):
		writeError(w, http.StatusNotFound, "Tanda not found", nil)
	case errors.Is(err, tanda.ErrSequenceViolation):
		writeError(w, http.StatusConflict, "Earlier rounds must be paid first", err)
	case errors.Is(err, tanda.ErrInvalidRoundIndex):
		writeError(w, http.StatusBadRequest, "Round out of range", err)
	case tanda.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid payment request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Failed to apply payment", err)
	}
}
