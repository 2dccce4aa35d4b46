/*
handlers_test.go - HTTP-level tests for the API

Exercises the full stack: router -> handlers -> store -> engine, with
an in-memory database and a pinned clock.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tandamx/tanda-engine/store/sqlite"
	"github.com/tandamx/tanda-engine/tanda"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestServer pins "today" to 2025-01-20: round 3 of a weekly tanda
// started on 2025-01-01.
func newTestServer(t *testing.T) (http.Handler, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store)
	h.now = func() tanda.Date { return tanda.NewDate(2025, time.January, 20) }
	return NewRouter(h), store
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var env Envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env), "response is not an envelope")
	return rec, env
}

// reData re-decodes the envelope's data payload into a typed value.
func reData(t *testing.T, env Envelope, out any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func weeklyBody(id string) SaveTandaRequest {
	return SaveTandaRequest{
		ID:             id,
		Name:           "Ahorro semanal",
		Frequency:      "weekly",
		StartDate:      "2025-01-01",
		AmountPerRound: "500",
		TotalRounds:    4,
	}
}

func seedWeekly(t *testing.T, handler http.Handler, id string, participants int) {
	t.Helper()
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas", weeklyBody(id))
	require.Equal(t, http.StatusCreated, rec.Code)

	names := []string{"Ana", "Beto", "Carla", "Diego"}
	for i := 0; i < participants; i++ {
		rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas/"+id+"/participants",
			SaveParticipantRequest{ID: names[i], Name: names[i], AssignedNumber: i + 1})
		require.Equal(t, http.StatusCreated, rec.Code)
	}
}

// =============================================================================
// TANDA CRUD
// =============================================================================

func TestCreateAndGetTanda(t *testing.T) {
	handler, _ := newTestServer(t)

	seedWeekly(t, handler, "t1", 2)

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var got struct {
		TandaDTO
		Participants []ParticipantDTO `json:"participants"`
	}
	reData(t, env, &got)
	assert.Equal(t, "Ahorro semanal", got.Name)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, 3, got.CurrentRound) // Jan 20 is round 3
	assert.Len(t, got.Participants, 2)
}

func TestCreateTanda_RejectsBadConfig(t *testing.T) {
	handler, _ := newTestServer(t)

	body := weeklyBody("bad")
	body.TotalRounds = 1
	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)

	body = weeklyBody("bad2")
	body.Frequency = "daily"
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = weeklyBody("bad3")
	body.StartDate = ""
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTanda_Unknown(t *testing.T) {
	handler, _ := newTestServer(t)

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestCreateParticipant_DuplicateNumberConflict(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 1)

	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/participants",
		SaveParticipantRequest{ID: "p2", Name: "Beto", AssignedNumber: 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestTogglePayment_RoundOne(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 2)

	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/payments/toggle",
		TogglePaymentRequest{ParticipantID: "Ana", Round: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var row MatrixRowDTO
	reData(t, env, &row)
	require.Len(t, row.Cells, 1)
	assert.True(t, row.Cells[0].Paid)
	assert.Equal(t, "500", row.Cells[0].Amount)
	assert.Equal(t, "2025-01-20", row.Cells[0].PaidDate)
}

func TestTogglePayment_SequenceViolationIsConflict(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 2)

	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/payments/toggle",
		TogglePaymentRequest{ParticipantID: "Ana", Round: 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Details, "round 1 is unpaid")
}

func TestRecordPayment_PartialWithNotes(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 2)

	rec, env := doJSON(t, handler, http.MethodPut, "/api/tandas/t1/payments",
		PaymentDetailsRequest{
			ParticipantID: "Ana",
			Round:         1,
			Amount:        "200",
			Notes:         "resto el viernes",
		})
	require.Equal(t, http.StatusOK, rec.Code)

	var row MatrixRowDTO
	reData(t, env, &row)
	require.Len(t, row.Cells, 1)
	assert.True(t, row.Cells[0].Partial)
	assert.Equal(t, "resto el viernes", row.Cells[0].Notes)
}

func TestPaymentMatrix(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 2)

	for round := 1; round <= 2; round++ {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/payments/toggle",
			TogglePaymentRequest{ParticipantID: "Ana", Round: round})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/t1/payments/matrix", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var matrix MatrixDTO
	reData(t, env, &matrix)
	assert.Equal(t, 3, matrix.CurrentRound)
	require.Len(t, matrix.Rounds, 4)
	assert.Equal(t, "2025-01-15", matrix.Rounds[2].Start)
	require.Len(t, matrix.Rows, 2)

	var ana, beto MatrixRowDTO
	for _, row := range matrix.Rows {
		switch row.Participant.ID {
		case "Ana":
			ana = row
		case "Beto":
			beto = row
		}
	}
	assert.Equal(t, 2, ana.PaidCount)
	assert.Equal(t, "pending", ana.Status) // caught up, round 3 open
	assert.Equal(t, "late", beto.Status)
}

// =============================================================================
// VIEWS
// =============================================================================

func TestStatsEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 3)

	for round := 1; round <= 2; round++ {
		rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/payments/toggle",
			TogglePaymentRequest{ParticipantID: "Ana", Round: round})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/t1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsDTO
	reData(t, env, &stats)
	assert.Equal(t, 3, stats.CurrentRound)
	assert.Equal(t, 1, stats.OnTime)
	assert.Equal(t, 2, stats.Late)
	assert.Equal(t, "1000", stats.TotalCollected)
	require.NotNil(t, stats.NextRecipient)
	assert.Equal(t, "Carla", stats.NextRecipient.Name)
}

func TestStatusEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 0)

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/t1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	reData(t, env, &got)
	assert.Equal(t, "active", got["status"])
}

func TestRotationEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)

	body := SaveTandaRequest{
		ID: "bd", Name: "Cumple", Frequency: "birthday",
		AmountPerRound: "300", TotalRounds: 3,
	}
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	seed := []SaveParticipantRequest{
		{ID: "p1", Name: "Ana", AssignedNumber: 1, BirthDate: "1990-01-15"},
		{ID: "p2", Name: "Beto", AssignedNumber: 2, BirthDate: "1988-01-15"},
		{ID: "p3", Name: "Carla", AssignedNumber: 3, BirthDate: "1992-07-01"},
	}
	for _, p := range seed {
		rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas/bd/participants", p)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/bd/rotation", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rot RotationDTO
	reData(t, env, &rot)
	// Jan 20: both Jan-15 birthdays are current together.
	require.Len(t, rot.Current, 2)
	assert.Equal(t, 5, rot.Current[0].DaysSince)
	require.Len(t, rot.Next, 1)
	assert.Equal(t, "Carla", rot.Next[0].Participant.Name)
}

func TestRotationEndpoint_DateDrivenRejected(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 0)

	rec, env := doJSON(t, handler, http.MethodGet, "/api/tandas/t1/rotation", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
}

func TestBoardHidesContactData(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 0)

	rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/participants",
		SaveParticipantRequest{ID: "p1", Name: "Ana", AssignedNumber: 1,
			Phone: "555-0100", Email: "ana@example.com"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas/t1/payments/toggle",
		TogglePaymentRequest{ParticipantID: "p1", Round: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/tandas/t1/board", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	raw := w.Body.String()
	assert.NotContains(t, raw, "555-0100")
	assert.NotContains(t, raw, "ana@example.com")

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	var board BoardDTO
	reData(t, env, &board)
	require.Len(t, board.Rows, 1)
	require.Len(t, board.Rows[0].Badges, 4)
	assert.Equal(t, "paid", board.Rows[0].Badges[0])
	assert.Equal(t, "", board.Rows[0].Badges[1])
}

// =============================================================================
// REGISTRATION
// =============================================================================

func TestRegistrationFlow(t *testing.T) {
	handler, _ := newTestServer(t)
	seedWeekly(t, handler, "t1", 1)

	// Issue a link.
	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/t1/links", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var link LinkDTO
	reData(t, env, &link)
	require.NotEmpty(t, link.Token)

	// Preview the tanda through the link.
	rec, env = doJSON(t, handler, http.MethodGet, "/api/register/"+link.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var info RegistrationInfoDTO
	reData(t, env, &info)
	assert.Equal(t, "t1", info.TandaID)
	assert.Equal(t, 1, info.SpotsTaken)

	// Sign up; the next free number is 2.
	rec, env = doJSON(t, handler, http.MethodPost, "/api/register/"+link.Token,
		RegisterRequest{Name: "Beto", Phone: "555-0101"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var joined ParticipantDTO
	reData(t, env, &joined)
	assert.Equal(t, 2, joined.AssignedNumber)

	// Close registration: links die and further sign-ups are rejected.
	rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas/t1/close-registration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/register/"+link.Token,
		RegisterRequest{Name: "Carla"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegister_BirthdayTandaRequiresBirthDate(t *testing.T) {
	handler, _ := newTestServer(t)

	body := SaveTandaRequest{
		ID: "bd", Name: "Cumple", Frequency: "birthday",
		AmountPerRound: "300", TotalRounds: 3,
	}
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/bd/links", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var link LinkDTO
	reData(t, env, &link)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/register/"+link.Token,
		RegisterRequest{Name: "Ana"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, handler, http.MethodPost, "/api/register/"+link.Token,
		RegisterRequest{Name: "Ana", BirthDate: "1990-03-01"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCloseRegistration_BirthdayAssignsNumbers(t *testing.T) {
	handler, _ := newTestServer(t)

	body := SaveTandaRequest{
		ID: "bd", Name: "Cumple", Frequency: "birthday",
		AmountPerRound: "300", TotalRounds: 3,
	}
	rec, _ := doJSON(t, handler, http.MethodPost, "/api/tandas", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	seed := []SaveParticipantRequest{
		{ID: "p1", Name: "Zoe", BirthDate: "1991-11-02"},
		{ID: "p2", Name: "Mia", BirthDate: "1993-02-14"},
	}
	for _, p := range seed {
		rec, _ = doJSON(t, handler, http.MethodPost, "/api/tandas/bd/participants", p)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := doJSON(t, handler, http.MethodPost, "/api/tandas/bd/close-registration", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var roster []ParticipantDTO
	reData(t, env, &roster)
	require.Len(t, roster, 2)
	assert.Equal(t, "Mia", roster[0].Name) // February birthday first
	assert.Equal(t, 1, roster[0].AssignedNumber)
	assert.Equal(t, "Zoe", roster[1].Name)
	assert.Equal(t, 2, roster[1].AssignedNumber)
}
