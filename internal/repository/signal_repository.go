package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fleetwatch/safety-backend-go/internal/models"
)

// SignalRepository handles database operations for stored safety signals.
// It lives entirely at the ingestion boundary; the analytics core only
// ever sees the in-memory sequences it loads.
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository creates a new signal repository
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// InsertSignals stores a normalized signal batch in one transaction
func (r *SignalRepository) InsertSignals(ctx context.Context, signals []models.SignalData) error {
	if len(signals) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO signals (
			driver_id, driver_name, vehicle_id, severity, event_state,
			occurred_at, behavior_label, latitude, longitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.PrepareContext(ctx, insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range signals {
		_, err := stmt.ExecContext(ctx,
			nullString(s.DriverID),
			nullString(s.DriverName),
			nullString(s.VehicleID),
			s.Severity,
			nullString(s.EventState),
			nullString(s.OccurredAt),
			nullString(s.BehaviorLabel),
			nullFloat(s.Latitude),
			nullFloat(s.Longitude),
		)
		if err != nil {
			return fmt.Errorf("failed to insert signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SignalFilter narrows ListSignals
type SignalFilter struct {
	StartDate string // inclusive, ISO date or timestamp prefix
	EndDate   string // inclusive
	DriverID  string
	Limit     int
}

// ListSignals loads stored signals matching the filter, oldest first
func (r *SignalRepository) ListSignals(ctx context.Context, filter SignalFilter) ([]models.SignalData, error) {
	query := `
		SELECT driver_id, driver_name, vehicle_id, severity, event_state,
		       occurred_at, behavior_label, latitude, longitude
		FROM signals
	`

	var conditions []string
	var args []interface{}

	// Compare on the date prefix so date-only filters include whole days
	if filter.StartDate != "" {
		conditions = append(conditions, "substr(occurred_at, 1, 10) >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		conditions = append(conditions, "substr(occurred_at, 1, 10) <= ?")
		args = append(args, filter.EndDate)
	}
	if filter.DriverID != "" {
		conditions = append(conditions, "driver_id = ?")
		args = append(args, filter.DriverID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY occurred_at"

	limit := filter.Limit
	if limit <= 0 || limit > 100000 {
		limit = 100000
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var signals []models.SignalData
	for rows.Next() {
		var s models.SignalData
		var driverID, driverName, vehicleID, eventState, occurredAt, behavior sql.NullString
		var lat, lon sql.NullFloat64

		err := rows.Scan(&driverID, &driverName, &vehicleID, &s.Severity,
			&eventState, &occurredAt, &behavior, &lat, &lon)
		if err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}

		s.DriverID = driverID.String
		s.DriverName = driverName.String
		s.VehicleID = vehicleID.String
		s.EventState = eventState.String
		s.OccurredAt = occurredAt.String
		s.BehaviorLabel = behavior.String
		if lat.Valid {
			v := lat.Float64
			s.Latitude = &v
		}
		if lon.Valid {
			v := lon.Float64
			s.Longitude = &v
		}

		signals = append(signals, s)
	}

	return signals, rows.Err()
}

// CountSignals returns the total number of stored signals
func (r *SignalRepository) CountSignals(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signals").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count signals: %w", err)
	}
	return count, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
