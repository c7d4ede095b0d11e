// Package riskstore is an optional durable mirror of internal/riskcache's
// JSON risk-off records, for operators who want a queryable history of
// stop-loss events across restarts instead of only the latest file per
// market. It is additive: the JSON files remain the source of truth the
// strategies read from (spec.md §6); this package only records history.
package riskstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/internal/riskcache"
)

// Store mirrors risk-off records into Postgres.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// New opens the Postgres connection and verifies it with a ping.
func New(cfg *Config) (*Store, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("riskstore-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &Store{db: db, logger: cfg.Logger}, nil
}

// Schema is the DDL for the mirrored table, applied by operators out of
// band (this core does not run migrations itself).
const Schema = `
CREATE TABLE IF NOT EXISTS risk_off_events (
	id SERIAL PRIMARY KEY,
	market_id TEXT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	question TEXT NOT NULL,
	message TEXT NOT NULL,
	sleep_till TIMESTAMPTZ NOT NULL
);
`

// RecordRiskOff inserts a row mirroring a riskcache.Record just written for
// marketID.
func (s *Store) RecordRiskOff(ctx context.Context, marketID string, rec riskcache.Record) error {
	query := `
		INSERT INTO risk_off_events (market_id, occurred_at, question, message, sleep_till)
		VALUES ($1, $2::timestamptz, $3, $4, $5::timestamptz)
	`

	_, err := s.db.ExecContext(ctx, query, marketID, rec.Time, rec.Question, rec.Msg, rec.SleepTill)
	if err != nil {
		return fmt.Errorf("insert risk-off event: %w", err)
	}

	s.logger.Debug("risk-off-event-mirrored", zap.String("market_id", marketID))

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.logger.Info("riskstore-closing")
	return s.db.Close()
}
