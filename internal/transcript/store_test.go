package transcript

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/internal/engine"
	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

func sampleRecord() Record {
	return Record{
		CallID:    "call_1",
		CompanyID: "co_test",
		Mode:      string(engine.ModeConfirmation),
		Slots:     map[string]string{"name": "Dana Ruiz", "phone": "+15125550140"},
		Turns: []engine.HistoryEntry{
			{Role: engine.RoleAgent, Text: "Thanks for calling!"},
			{Role: engine.RoleCaller, Text: "I need a repair"},
		},
		CreatedAt: time.Date(2026, 8, 14, 15, 30, 0, 0, time.UTC),
	}
}

func TestStoreSave(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := sampleRecord()
	slots, _ := json.Marshal(rec.Slots)
	turns, _ := json.Marshal(rec.Turns)

	mock.ExpectExec("INSERT INTO call_transcripts").
		WithArgs(rec.CallID, rec.CompanyID, rec.Mode, slots, turns, 2, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewStore(mock, logging.Default())
	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := sampleRecord()
	slots, _ := json.Marshal(rec.Slots)
	turns, _ := json.Marshal(rec.Turns)

	mock.ExpectQuery("SELECT call_id, company_id, mode, slots, turns, created_at").
		WithArgs("call_1").
		WillReturnRows(pgxmock.NewRows([]string{"call_id", "company_id", "mode", "slots", "turns", "created_at"}).
			AddRow(rec.CallID, rec.CompanyID, rec.Mode, slots, turns, rec.CreatedAt))

	store := NewStore(mock, logging.Default())
	got, err := store.Get(context.Background(), "call_1")
	require.NoError(t, err)
	assert.Equal(t, "Dana Ruiz", got.Slots["name"])
	assert.Len(t, got.Turns, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT call_id, company_id, mode, slots, turns, created_at").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"call_id", "company_id", "mode", "slots", "turns", "created_at"}))

	store := NewStore(mock, logging.Default())
	_, err = store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rec := sampleRecord()
	slots, _ := json.Marshal(rec.Slots)
	turns, _ := json.Marshal(rec.Turns)

	mock.ExpectQuery("SELECT call_id, company_id, mode, slots, turns, created_at").
		WithArgs("co_test", 20).
		WillReturnRows(pgxmock.NewRows([]string{"call_id", "company_id", "mode", "slots", "turns", "created_at"}).
			AddRow(rec.CallID, rec.CompanyID, rec.Mode, slots, turns, rec.CreatedAt))

	store := NewStore(mock, logging.Default())
	records, err := store.ListRecent(context.Background(), "co_test", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "call_1", records[0].CallID)
}
