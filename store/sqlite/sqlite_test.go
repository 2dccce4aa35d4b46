package sqlite_test

import (
	"context"
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

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func weeklyTanda(id string) tanda.Config {
	return tanda.Config{
		ID:             id,
		Name:           "Ahorro semanal",
		Frequency:      tanda.FrequencyWeekly,
		StartDate:      tanda.NewDate(2025, time.January, 1),
		AmountPerRound: tanda.NewMoneyFromInt(500),
		TotalRounds:    5,
	}
}

func seedTanda(t *testing.T, store *sqlite.Store, cfg tanda.Config, participants ...tanda.Participant) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveTanda(ctx, cfg))
	for _, p := range participants {
		require.NoError(t, store.SaveParticipant(ctx, cfg.ID, p))
	}
}

// =============================================================================
// TANDA CONFIG
// =============================================================================

func TestSaveAndGetConfig_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := weeklyTanda("t1")
	require.NoError(t, store.SaveTanda(ctx, cfg))

	got, err := store.GetConfig(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, got.Name)
	assert.Equal(t, cfg.Frequency, got.Frequency)
	assert.True(t, got.StartDate.Equal(cfg.StartDate))
	assert.True(t, got.AmountPerRound.Equal(cfg.AmountPerRound))
	assert.Equal(t, cfg.TotalRounds, got.TotalRounds)
}

func TestGetConfig_Unknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetConfig(context.Background(), "nope")
	assert.ErrorIs(t, err, sqlite.ErrTandaNotFound)
}

func TestSaveTanda_UpdateKeepsRegistrationState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := weeklyTanda("t1")
	require.NoError(t, store.SaveTanda(ctx, cfg))
	require.NoError(t, store.CloseRegistration(ctx, "t1", nil))

	// Re-saving the config must not silently reopen registration.
	cfg.Name = "Renamed"
	require.NoError(t, store.SaveTanda(ctx, cfg))

	open, err := store.RegistrationOpen(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestDeleteTanda_CascadesToChildren(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := weeklyTanda("t1")
	seedTanda(t, store, cfg,
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})
	_, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, tanda.NewDate(2025, time.January, 2))
	require.NoError(t, err)

	require.NoError(t, store.DeleteTanda(ctx, "t1"))

	_, err = store.GetConfig(ctx, "t1")
	assert.ErrorIs(t, err, sqlite.ErrTandaNotFound)
	participants, err := store.ListParticipants(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, participants)
	ledger, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

// =============================================================================
// PARTICIPANTS
// =============================================================================

func TestSaveParticipant_DuplicateNumberRejected(t *testing.T) {
	// GIVEN: number 2 is taken in tanda t1
	// WHEN: a second participant claims number 2
	// THEN: ErrDuplicateNumber; the same number in another tanda is fine

	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 2})
	seedTanda(t, store, weeklyTanda("t2"))

	err := store.SaveParticipant(ctx, "t1",
		tanda.Participant{ID: "p2", Name: "Beto", AssignedNumber: 2})
	assert.ErrorIs(t, err, tanda.ErrDuplicateNumber)

	err = store.SaveParticipant(ctx, "t2",
		tanda.Participant{ID: "p3", Name: "Carla", AssignedNumber: 2})
	assert.NoError(t, err)
}

func TestSaveParticipant_UnassignedNumberMayRepeat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"))
	require.NoError(t, store.SaveParticipant(ctx, "t1", tanda.Participant{ID: "p1", Name: "Ana"}))
	require.NoError(t, store.SaveParticipant(ctx, "t1", tanda.Participant{ID: "p2", Name: "Beto"}))

	participants, err := store.ListParticipants(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, participants, 2)
}

func TestListParticipants_BirthDateRoundTrip(t *testing.T) {
	store := newTestStore(t)

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{
			ID: "p1", Name: "Ana", AssignedNumber: 1,
			BirthDate: tanda.NewDate(1992, time.February, 29),
		},
		tanda.Participant{ID: "p2", Name: "Beto", AssignedNumber: 2})

	participants, err := store.ListParticipants(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, participants, 2)
	assert.True(t, participants[0].BirthDate.Equal(tanda.NewDate(1992, time.February, 29)))
	assert.False(t, participants[1].HasBirthDate())
}

func TestDeleteParticipant_RemovesPayments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})
	_, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, tanda.NewDate(2025, time.January, 2))
	require.NoError(t, err)

	require.NoError(t, store.DeleteParticipant(ctx, "t1", "p1"))

	ledger, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, ledger)

	err = store.DeleteParticipant(ctx, "t1", "p1")
	assert.ErrorIs(t, err, tanda.ErrParticipantNotFound)
}

func TestCloseRegistration_WritesFinalNumbers(t *testing.T) {
	// Numbers may be wholly reshuffled on close; the transient overlap
	// with previous values must not trip the uniqueness index.

	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1,
			BirthDate: tanda.NewDate(1990, time.November, 2)},
		tanda.Participant{ID: "p2", Name: "Beto", AssignedNumber: 2,
			BirthDate: tanda.NewDate(1988, time.February, 14)})

	participants, err := store.ListParticipants(ctx, "t1")
	require.NoError(t, err)
	numbered := tanda.AssignNumbersByBirthday(participants)

	require.NoError(t, store.CloseRegistration(ctx, "t1", numbered))

	got, err := store.ListParticipants(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID) // February birthday goes first
	assert.Equal(t, 1, got[0].AssignedNumber)
	assert.Equal(t, "p1", got[1].ID)
	assert.Equal(t, 2, got[1].AssignedNumber)

	open, err := store.RegistrationOpen(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, open)
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

func TestApplyPaymentToggle_PersistsCell(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})

	today := tanda.NewDate(2025, time.January, 2)
	ledger, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, today)
	require.NoError(t, err)
	assert.True(t, ledger.IsPaid("p1", 1))

	// Re-load from disk: the write survived.
	stored, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	rec, ok := stored.Get("p1", 1)
	require.True(t, ok)
	assert.True(t, rec.Paid)
	assert.True(t, rec.Amount.Equal(tanda.NewMoneyFromInt(500)))
	assert.Equal(t, tanda.DefaultPaymentMethod, rec.Method)
	assert.True(t, rec.PaidDate.Equal(today))
}

func TestApplyPaymentToggle_EnforcesSequenceAgainstStoredLedger(t *testing.T) {
	// The check runs on what is actually stored, not the caller's view.

	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})

	_, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 3, tanda.NewDate(2025, time.January, 20))
	assert.ErrorIs(t, err, tanda.ErrSequenceViolation)

	stored, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected toggle must leave no row behind")
}

func TestApplyPaymentToggle_UnmarkClearsDefaultRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})

	today := tanda.NewDate(2025, time.January, 2)
	_, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, today)
	require.NoError(t, err)
	ledger, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, today)
	require.NoError(t, err)
	assert.Empty(t, ledger)

	stored, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestApplyPaymentDetails_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"),
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1})

	details := tanda.PaymentRecord{
		Amount:   tanda.NewMoneyFromInt(250),
		PaidDate: tanda.NewDate(2025, time.January, 3),
		Method:   "cash",
		Notes:    "pago parcial",
	}
	_, err := store.ApplyPaymentDetails(ctx, "t1", "p1", 1, details)
	require.NoError(t, err)

	stored, err := store.LoadLedger(ctx, "t1")
	require.NoError(t, err)
	rec, ok := stored.Get("p1", 1)
	require.True(t, ok)
	assert.True(t, rec.Paid)
	assert.True(t, rec.Amount.Equal(tanda.NewMoneyFromInt(250)))
	assert.Equal(t, "cash", rec.Method)
	assert.Equal(t, "pago parcial", rec.Notes)

	// Unmark keeps the customized row with paid=false.
	ledger, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, tanda.NewDate(2025, time.January, 4))
	require.NoError(t, err)
	rec, ok = ledger.Get("p1", 1)
	require.True(t, ok)
	assert.False(t, rec.Paid)
	assert.Equal(t, "pago parcial", rec.Notes)
}

func TestGetTanda_FullSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cfg := weeklyTanda("t1")
	seedTanda(t, store, cfg,
		tanda.Participant{ID: "p1", Name: "Ana", AssignedNumber: 1},
		tanda.Participant{ID: "p2", Name: "Beto", AssignedNumber: 2})
	_, err := store.ApplyPaymentToggle(ctx, "t1", "p1", 1, tanda.NewDate(2025, time.January, 2))
	require.NoError(t, err)

	snapshot, err := store.GetTanda(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", snapshot.Config.ID)
	assert.Len(t, snapshot.Participants, 2)
	assert.True(t, snapshot.Ledger.IsPaid("p1", 1))
}

// =============================================================================
// REGISTRATION LINKS
// =============================================================================

func TestLinks_Lifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTanda(t, store, weeklyTanda("t1"))

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	link := sqlite.RegistrationLink{
		Token:     "tok-abc",
		TandaID:   "t1",
		ExpiresAt: now.Add(48 * time.Hour),
		Active:    true,
	}
	require.NoError(t, store.SaveLink(ctx, link))

	got, err := store.GetLink(ctx, "tok-abc", now)
	require.NoError(t, err)
	assert.Equal(t, "t1", got.TandaID)

	// Expired token.
	_, err = store.GetLink(ctx, "tok-abc", now.Add(72*time.Hour))
	assert.ErrorIs(t, err, sqlite.ErrLinkNotFound)

	// Deactivated token.
	require.NoError(t, store.DeactivateLink(ctx, "tok-abc"))
	_, err = store.GetLink(ctx, "tok-abc", now)
	assert.ErrorIs(t, err, sqlite.ErrLinkNotFound)

	links, err := store.ListLinks(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.False(t, links[0].Active)
}

func TestGetLink_Unknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetLink(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, sqlite.ErrLinkNotFound)
}
