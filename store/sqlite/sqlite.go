/*
Package sqlite provides the SQLite-backed persistence layer.

PURPOSE:
  Stores tanda configurations, participants, the payment ledger and
  registration links. The tanda package stays pure; this package is
  where snapshots are loaded, mutated through the engine, and written
  back. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  tandas:             Tanda configuration (frequency, amount, rounds)
  participants:       Members with their assigned turn number
  payments:           One row per touched ledger cell
  registration_links: Shareable sign-up tokens with expiry

MUTATION DISCIPLINE:
  Payment writes go through ApplyPaymentToggle / ApplyPaymentDetails,
  which re-load the stored ledger under the write lock and re-run the
  engine's validation against it. Callers never write payment rows
  directly, so the sequential-payment rule cannot be bypassed by a
  stale client.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/tandas.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tandamx/tanda-engine/tanda"
)

// ErrTandaNotFound is returned when a tanda ID resolves to nothing.
var ErrTandaNotFound = fmt.Errorf("tanda not found")

// ErrLinkNotFound is returned when a registration token is unknown,
// expired or deactivated.
var ErrLinkNotFound = fmt.Errorf("registration link not found")

// Store implements persistence for tandas using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tandas (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		start_date TEXT,
		amount_per_round TEXT NOT NULL,
		total_rounds INTEGER NOT NULL,
		payment_method TEXT NOT NULL DEFAULT '',
		registration_open BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participants (
		id TEXT PRIMARY KEY,
		tanda_id TEXT NOT NULL REFERENCES tandas(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		assigned_number INTEGER NOT NULL DEFAULT 0,
		birth_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_participants_tanda
		ON participants(tanda_id);

	-- CRITICAL: one participant per turn number within a tanda.
	-- Number 0 means "not yet assigned" and may repeat.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_assigned_number
		ON participants(tanda_id, assigned_number)
		WHERE assigned_number > 0;

	-- One row per touched ledger cell; untouched cells have no row.
	CREATE TABLE IF NOT EXISTS payments (
		tanda_id TEXT NOT NULL REFERENCES tandas(id) ON DELETE CASCADE,
		participant_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		paid BOOLEAN NOT NULL DEFAULT FALSE,
		amount TEXT NOT NULL DEFAULT '0',
		paid_date TEXT,
		method TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		exempt BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (tanda_id, participant_id, round)
	);

	CREATE INDEX IF NOT EXISTS idx_payments_participant
		ON payments(tanda_id, participant_id);

	CREATE TABLE IF NOT EXISTS registration_links (
		token TEXT PRIMARY KEY,
		tanda_id TEXT NOT NULL REFERENCES tandas(id) ON DELETE CASCADE,
		expires_at TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_links_tanda
		ON registration_links(tanda_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TANDA CONFIG
// =============================================================================

// SaveTanda inserts or updates a tanda configuration.
func (s *Store) SaveTanda(ctx context.Context, cfg tanda.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO tandas (id, name, frequency, start_date, amount_per_round,
			total_rounds, payment_method, registration_open, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			frequency = excluded.frequency,
			start_date = excluded.start_date,
			amount_per_round = excluded.amount_per_round,
			total_rounds = excluded.total_rounds,
			payment_method = excluded.payment_method,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.Name, string(cfg.Frequency),
		nullDate(cfg.StartDate),
		cfg.AmountPerRound.String(),
		cfg.TotalRounds, cfg.PaymentMethod,
		now, now,
	)
	return err
}

// GetConfig retrieves a tanda configuration by ID.
func (s *Store) GetConfig(ctx context.Context, id string) (tanda.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.getConfig(ctx, id)
}

func (s *Store) getConfig(ctx context.Context, id string) (tanda.Config, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, frequency, start_date, amount_per_round, total_rounds, payment_method
		 FROM tandas WHERE id = ?`, id)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return tanda.Config{}, ErrTandaNotFound
	}
	return cfg, err
}

// ListConfigs returns all tanda configurations ordered by name.
func (s *Store) ListConfigs(ctx context.Context) ([]tanda.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, frequency, start_date, amount_per_round, total_rounds, payment_method
		 FROM tandas ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []tanda.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// DeleteTanda removes a tanda and, via cascade, its participants,
// payments and links.
func (s *Store) DeleteTanda(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM tandas WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTandaNotFound
	}
	return nil
}

// RegistrationOpen reports whether a tanda still accepts sign-ups.
func (s *Store) RegistrationOpen(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var open bool
	err := s.db.QueryRowContext(ctx,
		"SELECT registration_open FROM tandas WHERE id = ?", id).Scan(&open)
	if err == sql.ErrNoRows {
		return false, ErrTandaNotFound
	}
	return open, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (tanda.Config, error) {
	var (
		cfg       tanda.Config
		frequency string
		startDate sql.NullString
		amount    string
	)

	err := row.Scan(&cfg.ID, &cfg.Name, &frequency, &startDate,
		&amount, &cfg.TotalRounds, &cfg.PaymentMethod)
	if err != nil {
		return cfg, err
	}

	cfg.Frequency = tanda.Frequency(frequency)
	if startDate.Valid && startDate.String != "" {
		d, err := tanda.ParseDate(startDate.String)
		if err != nil {
			return cfg, fmt.Errorf("corrupt start_date %q: %w", startDate.String, err)
		}
		cfg.StartDate = d
	}
	cfg.AmountPerRound, err = decimal.NewFromString(amount)
	if err != nil {
		return cfg, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	return cfg, nil
}

// =============================================================================
// PARTICIPANTS
// =============================================================================

// SaveParticipant inserts or updates a participant. A taken turn
// number surfaces as tanda.ErrDuplicateNumber.
func (s *Store) SaveParticipant(ctx context.Context, tandaID string, p tanda.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveParticipant(ctx, s.db, tandaID, p)
}

func (s *Store) saveParticipant(ctx context.Context, db execer, tandaID string, p tanda.Participant) error {
	query := `
		INSERT INTO participants (id, tanda_id, name, phone, email, assigned_number, birth_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			email = excluded.email,
			assigned_number = excluded.assigned_number,
			birth_date = excluded.birth_date
	`

	_, err := db.ExecContext(ctx, query,
		p.ID, tandaID, p.Name, p.Phone, p.Email,
		p.AssignedNumber, nullDate(p.BirthDate),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("number %d in tanda %s: %w", p.AssignedNumber, tandaID, tanda.ErrDuplicateNumber)
		}
		return fmt.Errorf("failed to save participant: %w", err)
	}
	return nil
}

// ListParticipants returns a tanda's participants ordered by turn number.
func (s *Store) ListParticipants(ctx context.Context, tandaID string) ([]tanda.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listParticipants(ctx, tandaID)
}

func (s *Store) listParticipants(ctx context.Context, tandaID string) ([]tanda.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone, email, assigned_number, birth_date
		 FROM participants WHERE tanda_id = ?
		 ORDER BY assigned_number, name`, tandaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []tanda.Participant
	for rows.Next() {
		var (
			p         tanda.Participant
			birthDate sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.AssignedNumber, &birthDate); err != nil {
			return nil, err
		}
		if birthDate.Valid && birthDate.String != "" {
			d, err := tanda.ParseDate(birthDate.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt birth_date %q: %w", birthDate.String, err)
			}
			p.BirthDate = d
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// DeleteParticipant removes one participant and their payment rows.
func (s *Store) DeleteParticipant(ctx context.Context, tandaID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx,
		"DELETE FROM payments WHERE tanda_id = ? AND participant_id = ?",
		tandaID, participantID); err != nil {
		return err
	}
	res, err := sqlTx.ExecContext(ctx,
		"DELETE FROM participants WHERE tanda_id = ? AND id = ?",
		tandaID, participantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tanda.ErrParticipantNotFound
	}

	return sqlTx.Commit()
}

// CloseRegistration stops sign-ups and writes the final turn numbers
// in one transaction. Used by birthday tandas where numbers are
// derived from birthdays once the roster is complete.
func (s *Store) CloseRegistration(ctx context.Context, tandaID string, numbered []tanda.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx,
		"UPDATE tandas SET registration_open = FALSE, updated_at = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339), tandaID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTandaNotFound
	}

	// Clear numbers first so re-assignment never trips the unique index
	// on its own previous values.
	if _, err := sqlTx.ExecContext(ctx,
		"UPDATE participants SET assigned_number = 0 WHERE tanda_id = ?", tandaID); err != nil {
		return err
	}
	for _, p := range numbered {
		if _, err := sqlTx.ExecContext(ctx,
			"UPDATE participants SET assigned_number = ? WHERE tanda_id = ? AND id = ?",
			p.AssignedNumber, tandaID, p.ID); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// PAYMENT LEDGER
// =============================================================================

// LoadLedger reads every touched ledger cell for a tanda.
func (s *Store) LoadLedger(ctx context.Context, tandaID string) (tanda.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.loadLedger(ctx, s.db, tandaID)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) loadLedger(ctx context.Context, db queryer, tandaID string) (tanda.Ledger, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT participant_id, round, paid, amount, paid_date, method, notes, exempt
		 FROM payments WHERE tanda_id = ?`, tandaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	ledger := tanda.Ledger{}
	for rows.Next() {
		var (
			participantID string
			round         int
			rec           tanda.PaymentRecord
			amount        string
			paidDate      sql.NullString
		)
		if err := rows.Scan(&participantID, &round, &rec.Paid, &amount,
			&paidDate, &rec.Method, &rec.Notes, &rec.Exempt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt payment amount %q: %w", amount, err)
		}
		if paidDate.Valid && paidDate.String != "" {
			d, err := tanda.ParseDate(paidDate.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt paid_date %q: %w", paidDate.String, err)
			}
			rec.PaidDate = d
		}
		ledger[tanda.LedgerKey{ParticipantID: participantID, Round: round}] = rec
	}
	return ledger, rows.Err()
}

// ApplyPaymentToggle flips one ledger cell through the engine and
// persists the result. The stored ledger is re-read inside the write
// lock, so the sequence check always runs against current data even
// when the caller's view was stale.
func (s *Store) ApplyPaymentToggle(ctx context.Context, tandaID, participantID string, round int, today tanda.Date) (tanda.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyPayment(ctx, tandaID, participantID, round,
		func(cfg tanda.Config, ledger tanda.Ledger) (tanda.Ledger, error) {
			return tanda.TogglePaid(ledger, cfg, participantID, round, today)
		})
}

// ApplyPaymentDetails writes an explicit record through the engine and
// persists the result.
func (s *Store) ApplyPaymentDetails(ctx context.Context, tandaID, participantID string, round int, details tanda.PaymentRecord) (tanda.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.applyPayment(ctx, tandaID, participantID, round,
		func(cfg tanda.Config, ledger tanda.Ledger) (tanda.Ledger, error) {
			return tanda.RecordDetails(ledger, cfg, participantID, round, details)
		})
}

func (s *Store) applyPayment(ctx context.Context, tandaID, participantID string, round int,
	mutate func(tanda.Config, tanda.Ledger) (tanda.Ledger, error)) (tanda.Ledger, error) {

	cfg, err := s.getConfig(ctx, tandaID)
	if err != nil {
		return nil, err
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	ledger, err := s.loadLedger(ctx, sqlTx, tandaID)
	if err != nil {
		return nil, err
	}

	next, err := mutate(cfg, ledger)
	if err != nil {
		return nil, err
	}

	// Only the addressed cell can have changed; persist just that one.
	key := tanda.LedgerKey{ParticipantID: participantID, Round: round}
	if rec, ok := next[key]; ok {
		if err := upsertPayment(ctx, sqlTx, tandaID, key, rec); err != nil {
			return nil, err
		}
	} else {
		if _, err := sqlTx.ExecContext(ctx,
			"DELETE FROM payments WHERE tanda_id = ? AND participant_id = ? AND round = ?",
			tandaID, participantID, round); err != nil {
			return nil, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func upsertPayment(ctx context.Context, db execer, tandaID string, key tanda.LedgerKey, rec tanda.PaymentRecord) error {
	query := `
		INSERT INTO payments (tanda_id, participant_id, round, paid, amount, paid_date, method, notes, exempt, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tanda_id, participant_id, round) DO UPDATE SET
			paid = excluded.paid,
			amount = excluded.amount,
			paid_date = excluded.paid_date,
			method = excluded.method,
			notes = excluded.notes,
			exempt = excluded.exempt,
			updated_at = excluded.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		tandaID, key.ParticipantID, key.Round,
		rec.Paid, rec.Amount.String(), nullDate(rec.PaidDate),
		rec.Method, rec.Notes, rec.Exempt,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	return nil
}

// =============================================================================
// FULL SNAPSHOT
// =============================================================================

// GetTanda loads the complete snapshot the engine operates on: config,
// roster and every touched ledger cell.
func (s *Store) GetTanda(ctx context.Context, id string) (tanda.Tanda, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, err := s.getConfig(ctx, id)
	if err != nil {
		return tanda.Tanda{}, err
	}
	participants, err := s.listParticipants(ctx, id)
	if err != nil {
		return tanda.Tanda{}, err
	}
	ledger, err := s.loadLedger(ctx, s.db, id)
	if err != nil {
		return tanda.Tanda{}, err
	}

	return tanda.Tanda{Config: cfg, Participants: participants, Ledger: ledger}, nil
}

// =============================================================================
// REGISTRATION LINKS
// =============================================================================

// RegistrationLink is a shareable sign-up token for one tanda.
type RegistrationLink struct {
	Token     string
	TandaID   string
	ExpiresAt time.Time
	Active    bool
	CreatedAt time.Time
}

// SaveLink stores a registration link.
func (s *Store) SaveLink(ctx context.Context, link RegistrationLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO registration_links (token, tanda_id, expires_at, active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		link.Token, link.TandaID,
		link.ExpiresAt.UTC().Format(time.RFC3339),
		link.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetLink resolves a token to a usable link. Expired or deactivated
// tokens come back as ErrLinkNotFound; callers need not distinguish.
func (s *Store) GetLink(ctx context.Context, token string, now time.Time) (RegistrationLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		link      RegistrationLink
		expiresAt string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, tanda_id, expires_at, active, created_at
		 FROM registration_links WHERE token = ?`, token,
	).Scan(&link.Token, &link.TandaID, &expiresAt, &link.Active, &createdAt)

	if err == sql.ErrNoRows {
		return RegistrationLink{}, ErrLinkNotFound
	}
	if err != nil {
		return RegistrationLink{}, err
	}

	link.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	link.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if !link.Active || now.After(link.ExpiresAt) {
		return RegistrationLink{}, ErrLinkNotFound
	}
	return link, nil
}

// ListLinks returns every link issued for a tanda, newest first.
func (s *Store) ListLinks(ctx context.Context, tandaID string) ([]RegistrationLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT token, tanda_id, expires_at, active, created_at
		 FROM registration_links WHERE tanda_id = ?
		 ORDER BY created_at DESC`, tandaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []RegistrationLink
	for rows.Next() {
		var (
			link      RegistrationLink
			expiresAt string
			createdAt string
		)
		if err := rows.Scan(&link.Token, &link.TandaID, &expiresAt, &link.Active, &createdAt); err != nil {
			return nil, err
		}
		link.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		link.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeactivateLink revokes a token. Revoking an unknown token is a no-op.
func (s *Store) DeactivateLink(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE registration_links SET active = FALSE WHERE token = ?", token)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "registration_links", "participants", "tandas"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullDate(d tanda.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
