package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"oilcall-go/internal/logger"
	"oilcall-go/internal/types"
)

var ErrNotFound = errors.New("phone call not found")

const phoneCallColumns = `id, call_id, phone_number, car_year, car_make, car_model, car_trim, status,
	oil_change_price, soonest_service_appt, hold_time_seconds, recording_url,
	sent_to_voicemail, transcript, created_at, updated_at`

// Repository provides phone_calls operations.
type Repository struct {
	db  *sql.DB
	log *logger.Logger
	now func() time.Time
}

func NewRepository(db *sql.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, log: log.Component("store"), now: time.Now}
}

// CreatePhoneCall inserts a new row. ID and timestamps are filled in.
func (r *Repository) CreatePhoneCall(ctx context.Context, pc *types.PhoneCall) error {
	pc.ID = uuid.New().String()
	pc.CreatedAt = r.now().UTC()
	pc.UpdatedAt = pc.CreatedAt

	query := `
		INSERT INTO phone_calls (
			id, call_id, phone_number, car_year, car_make, car_model, car_trim,
			status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		pc.ID, pc.CallID, pc.PhoneNumber, pc.CarYear, pc.CarMake, pc.CarModel, pc.CarTrim,
		pc.Status, pc.CreatedAt, pc.UpdatedAt,
	)
	if err != nil {
		r.log.WithError(err).WithField("call_id", pc.CallID).Error("failed to create phone call")
		return fmt.Errorf("failed to create phone call: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"id":      pc.ID,
		"call_id": pc.CallID,
	}).Info("phone call created")
	return nil
}

// UpdatePhoneCall stores the fields derived from the latest call status.
func (r *Repository) UpdatePhoneCall(ctx context.Context, callID string, res types.CallResult) error {
	query := `
		UPDATE phone_calls SET
			status = ?,
			oil_change_price = ?,
			soonest_service_appt = ?,
			hold_time_seconds = ?,
			recording_url = ?,
			sent_to_voicemail = ?,
			transcript = ?,
			updated_at = ?
		WHERE call_id = ?`

	result, err := r.db.ExecContext(ctx, query,
		res.Status, res.OilChangePrice, res.SoonestServiceAppt, res.HoldTimeSeconds,
		res.RecordingURL, res.SentToVoicemail, res.Transcript, r.now().UTC(), callID,
	)
	if err != nil {
		r.log.WithError(err).WithField("call_id", callID).Error("failed to update phone call")
		return fmt.Errorf("failed to update phone call: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update phone call: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, callID)
	}
	return nil
}

func (r *Repository) GetPhoneCall(ctx context.Context, callID string) (*types.PhoneCall, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+phoneCallColumns+` FROM phone_calls WHERE call_id = ?`, callID)
	pc, err := scanPhoneCall(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, callID)
		}
		r.log.WithError(err).WithField("call_id", callID).Error("failed to get phone call")
		return nil, fmt.Errorf("failed to get phone call: %w", err)
	}
	return pc, nil
}

// ListPhoneCalls returns the most recent calls first. A limit <= 0 returns every row.
func (r *Repository) ListPhoneCalls(ctx context.Context, limit int) ([]types.PhoneCall, error) {
	query := `SELECT ` + phoneCallColumns + ` FROM phone_calls ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list phone calls: %w", err)
	}
	defer rows.Close()

	var out []types.PhoneCall
	for rows.Next() {
		pc, err := scanPhoneCall(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan phone call: %w", err)
		}
		out = append(out, *pc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPhoneCall(s scanner) (*types.PhoneCall, error) {
	var (
		pc        types.PhoneCall
		price     sql.NullString
		appt      sql.NullString
		hold      sql.NullFloat64
		recording sql.NullString
		voicemail sql.NullBool
		text      sql.NullString
	)
	err := s.Scan(
		&pc.ID, &pc.CallID, &pc.PhoneNumber, &pc.CarYear, &pc.CarMake, &pc.CarModel, &pc.CarTrim,
		&pc.Status, &price, &appt, &hold, &recording, &voicemail, &text,
		&pc.CreatedAt, &pc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	pc.OilChangePrice = nullString(price)
	pc.SoonestServiceAppt = nullString(appt)
	pc.RecordingURL = nullString(recording)
	pc.Transcript = nullString(text)
	if hold.Valid {
		pc.HoldTimeSeconds = &hold.Float64
	}
	if voicemail.Valid {
		pc.SentToVoicemail = &voicemail.Bool
	}
	return &pc, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
