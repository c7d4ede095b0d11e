package riskstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/riskcache"
)

func TestStore_RecordRiskOff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db, logger: zap.NewNop()}

	rec := riskcache.Record{
		Time:      "2026-07-30T00:00:00Z",
		Question:  "Will it rain?",
		Msg:       "stop loss triggered",
		SleepTill: "2026-07-30T06:00:00Z",
	}

	mock.ExpectExec("INSERT INTO risk_off_events").
		WithArgs("market-1", rec.Time, rec.Question, rec.Msg, rec.SleepTill).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = s.RecordRiskOff(context.Background(), "market-1", rec)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RecordRiskOff_Error(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db, logger: zap.NewNop()}

	rec := riskcache.Record{Time: "t", Question: "q", Msg: "m", SleepTill: "s"}

	mock.ExpectExec("INSERT INTO risk_off_events").
		WithArgs("market-1", "t", "q", "m", "s").
		WillReturnError(sqlmock.ErrCancelled)

	err = s.RecordRiskOff(context.Background(), "market-1", rec)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Close(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s := &Store{db: db, logger: zap.NewNop()}

	mock.ExpectClose()
	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
