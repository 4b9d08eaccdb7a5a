// Package transcript persists finished calls: the full turn history and the
// collected booking details go to Postgres for operator review, and a JSON
// copy is archived to S3 for offline analysis.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

// ErrNotFound indicates no transcript exists for the call ID.
var ErrNotFound = errors.New("transcript: not found")

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Record is one finished call.
type Record struct {
	CallID    string                `json:"call_id"`
	CompanyID string                `json:"company_id"`
	Mode      string                `json:"mode"`
	Slots     map[string]string     `json:"slots"`
	Turns     []engine.HistoryEntry `json:"turns"`
	CreatedAt time.Time             `json:"created_at"`
}

func recordFromState(state engine.ConversationState) Record {
	return Record{
		CallID:    state.CallID,
		CompanyID: state.CompanyID,
		Mode:      string(state.Mode),
		Slots:     state.KnownSlots,
		Turns:     state.History,
		CreatedAt: time.Now().UTC(),
	}
}

// Store writes transcripts to Postgres.
type Store struct {
	db     db
	logger *logging.Logger
}

func NewStore(db db, logger *logging.Logger) *Store {
	if db == nil {
		panic("transcript: db cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{db: db, logger: logger}
}

// Save upserts the transcript for a call. Calls can be re-closed when the
// telephony layer retries the hangup webhook.
func (s *Store) Save(ctx context.Context, rec Record) error {
	slots, err := json.Marshal(rec.Slots)
	if err != nil {
		return fmt.Errorf("transcript: failed to marshal slots: %w", err)
	}
	turns, err := json.Marshal(rec.Turns)
	if err != nil {
		return fmt.Errorf("transcript: failed to marshal turns: %w", err)
	}

	query := `
		INSERT INTO call_transcripts (call_id, company_id, mode, slots, turns, turn_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (call_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			slots = EXCLUDED.slots,
			turns = EXCLUDED.turns,
			turn_count = EXCLUDED.turn_count
	`
	if _, err := s.db.Exec(ctx, query, rec.CallID, rec.CompanyID, rec.Mode, slots, turns, len(rec.Turns), rec.CreatedAt); err != nil {
		return fmt.Errorf("transcript: failed to save transcript: %w", err)
	}
	return nil
}

// Get fetches one transcript by call ID.
func (s *Store) Get(ctx context.Context, callID string) (*Record, error) {
	query := `
		SELECT call_id, company_id, mode, slots, turns, created_at
		FROM call_transcripts
		WHERE call_id = $1
	`
	var (
		rec   Record
		slots []byte
		turns []byte
	)
	err := s.db.QueryRow(ctx, query, callID).Scan(&rec.CallID, &rec.CompanyID, &rec.Mode, &slots, &turns, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transcript: failed to load transcript: %w", err)
	}
	if err := json.Unmarshal(slots, &rec.Slots); err != nil {
		return nil, fmt.Errorf("transcript: failed to decode slots: %w", err)
	}
	if err := json.Unmarshal(turns, &rec.Turns); err != nil {
		return nil, fmt.Errorf("transcript: failed to decode turns: %w", err)
	}
	return &rec, nil
}

// ListRecent returns the newest transcripts for a company.
func (s *Store) ListRecent(ctx context.Context, companyID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT call_id, company_id, mode, slots, turns, created_at
		FROM call_transcripts
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.Query(ctx, query, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec   Record
			slots []byte
			turns []byte
		)
		if err := rows.Scan(&rec.CallID, &rec.CompanyID, &rec.Mode, &slots, &turns, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: failed to scan transcript: %w", err)
		}
		if err := json.Unmarshal(slots, &rec.Slots); err != nil {
			return nil, fmt.Errorf("transcript: failed to decode slots: %w", err)
		}
		if err := json.Unmarshal(turns, &rec.Turns); err != nil {
			return nil, fmt.Errorf("transcript: failed to decode turns: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
