// Package store persists phone calls in MySQL, keyed by the platform call id.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"oilcall-go/internal/logger"
)

const createPhoneCallsTable = `
CREATE TABLE IF NOT EXISTS phone_calls (
	id                   CHAR(36)     NOT NULL PRIMARY KEY,
	call_id              VARCHAR(128) NOT NULL,
	phone_number         VARCHAR(32)  NOT NULL,
	car_year             INT          NOT NULL,
	car_make             VARCHAR(64)  NOT NULL,
	car_model            VARCHAR(64)  NOT NULL,
	car_trim             VARCHAR(64)  NOT NULL DEFAULT '',
	status               VARCHAR(32)  NOT NULL,
	oil_change_price     VARCHAR(255) NULL,
	soonest_service_appt VARCHAR(255) NULL,
	hold_time_seconds    DOUBLE       NULL,
	recording_url        TEXT         NULL,
	sent_to_voicemail    BOOLEAN      NULL,
	transcript           MEDIUMTEXT   NULL,
	created_at           DATETIME(3)  NOT NULL,
	updated_at           DATETIME(3)  NOT NULL,
	UNIQUE KEY uq_phone_calls_call_id (call_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// Open connects to MySQL. parseTime and clientFoundRows are always enabled so
// timestamps scan into time.Time and an UPDATE that changes nothing still
// reports the matched row.
func Open(ctx context.Context, dsn string, log *logger.Logger) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.ClientFoundRows = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("addr", cfg.Addr).WithField("database", cfg.DBName).Info("connected to MySQL")
	return db, nil
}

// Migrate creates the schema if missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createPhoneCallsTable); err != nil {
		return fmt.Errorf("create phone_calls: %w", err)
	}
	return nil
}
