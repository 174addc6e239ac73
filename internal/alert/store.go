package alert

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guardband-io/distress.engine/internal/db"
)

// EventRecord is a persisted sensor event with its evaluation outcome.
type EventRecord struct {
	ID             string    `json:"event_id"`
	DeviceID       string    `json:"device_id"`
	RecordedAt     time.Time `json:"recorded_at"`
	HeartRate      *int      `json:"heart_rate,omitempty"`
	Temperature    *float64  `json:"temperature,omitempty"`
	HasAudio       bool      `json:"has_audio"`
	AudioStatus    string    `json:"audio_status,omitempty"`
	ManualTrigger  bool      `json:"manual_trigger"`
	Position       *Position `json:"position,omitempty"`
	CombinedScore  float64   `json:"combined_score"`
	StressDetected bool      `json:"stress_detected"`
}

// Store persists alerts, sensor events, and their associations.
type Store interface {
	// OpenAlert returns the device's alert with status NEW, or nil when
	// the device has no open alert.
	OpenAlert(deviceID string) (*Alert, error)
	InsertAlert(a *Alert) error
	// UpdateStatus applies a lifecycle transition, rejecting illegal
	// moves with ErrInvalidTransition and leaving the alert unchanged.
	UpdateStatus(alertID string, to Status) (*Alert, error)
	GetAlert(alertID string) (*Alert, error)
	// ListAlerts returns alerts newest first, optionally filtered by
	// device and status (empty values match everything).
	ListAlerts(deviceID string, status Status, limit int) ([]Alert, error)
	InsertEvent(e *EventRecord) error
	// AttachEvent associates a triggering event with an alert as
	// evidence.
	AttachEvent(alertID, eventID string) error
	// UpdatePosition refreshes an alert's last known GPS fix.
	UpdatePosition(alertID string, pos Position) error
}

// SQLStore implements Store over the engine database.
type SQLStore struct {
	db *db.DB
}

// NewSQLStore wraps the given database.
func NewSQLStore(database *db.DB) *SQLStore {
	return &SQLStore{db: database}
}

const alertColumns = `alert_id, device_id, status, severity, reason,
	combined_score, confidence, model_version, latitude, longitude,
	created_at, updated_at, resolved_at`

func scanAlert(row interface{ Scan(...any) error }) (*Alert, error) {
	var a Alert
	var modelVersion sql.NullString
	var lat, lng sql.NullFloat64
	var resolvedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.DeviceID, &a.Status, &a.Severity, &a.Reason,
		&a.CombinedScore, &a.Confidence, &modelVersion, &lat, &lng,
		&a.CreatedAt, &a.UpdatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ModelVersion = modelVersion.String
	if lat.Valid && lng.Valid {
		a.Position = &Position{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return &a, nil
}

func (s *SQLStore) OpenAlert(deviceID string) (*Alert, error) {
	row := s.db.QueryRow(
		`SELECT `+alertColumns+` FROM alerts
		 WHERE device_id = ? AND status = ?
		 ORDER BY created_at DESC LIMIT 1`,
		deviceID, StatusNew,
	)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query open alert: %w", err)
	}
	return a, nil
}

func (s *SQLStore) InsertAlert(a *Alert) error {
	var lat, lng, resolvedAt any
	if a.Position != nil {
		lat, lng = a.Position.Latitude, a.Position.Longitude
	}
	if a.ResolvedAt != nil {
		resolvedAt = a.ResolvedAt.UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO alerts (`+alertColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.DeviceID, a.Status, a.Severity, a.Reason,
		a.CombinedScore, a.Confidence, a.ModelVersion, lat, lng,
		a.CreatedAt.UTC(), a.UpdatedAt.UTC(), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateStatus(alertID string, to Status) (*Alert, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+alertColumns+` FROM alerts WHERE alert_id = ?`, alertID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}

	if err := checkTransition(a.Status, to); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	query := `UPDATE alerts SET status = ?, updated_at = ? WHERE alert_id = ?`
	args := []any{to, now, alertID}
	if to == StatusResolved || to == StatusFalseAlarm {
		// Terminal transitions stamp the resolution time.
		query = `UPDATE alerts SET status = ?, updated_at = ?, resolved_at = ? WHERE alert_id = ?`
		args = []any{to, now, now, alertID}
		a.ResolvedAt = &now
	}
	if _, err := tx.Exec(query, args...); err != nil {
		return nil, fmt.Errorf("update alert status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}

	a.Status = to
	a.UpdatedAt = now
	return a, nil
}

func (s *SQLStore) GetAlert(alertID string) (*Alert, error) {
	row := s.db.QueryRow(`SELECT `+alertColumns+` FROM alerts WHERE alert_id = ?`, alertID)
	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	return a, nil
}

func (s *SQLStore) ListAlerts(deviceID string, status Status, limit int) ([]Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE 1=1`
	var args []any
	if deviceID != "" {
		query += ` AND device_id = ?`
		args = append(args, deviceID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLStore) InsertEvent(e *EventRecord) error {
	var lat, lng any
	if e.Position != nil {
		lat, lng = e.Position.Latitude, e.Position.Longitude
	}
	_, err := s.db.Exec(
		`INSERT INTO sensor_events (
			event_id, device_id, recorded_at, heart_rate, temperature,
			has_audio, audio_status, manual_trigger, latitude, longitude,
			combined_score, stress_detected
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DeviceID, e.RecordedAt.UTC(), e.HeartRate, e.Temperature,
		e.HasAudio, e.AudioStatus, e.ManualTrigger, lat, lng,
		e.CombinedScore, e.StressDetected,
	)
	if err != nil {
		return fmt.Errorf("insert sensor event: %w", err)
	}
	return nil
}

func (s *SQLStore) AttachEvent(alertID, eventID string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO alert_events (alert_id, event_id) VALUES (?, ?)`,
		alertID, eventID,
	)
	if err != nil {
		return fmt.Errorf("attach event to alert: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdatePosition(alertID string, pos Position) error {
	_, err := s.db.Exec(
		`UPDATE alerts SET latitude = ?, longitude = ?, updated_at = ? WHERE alert_id = ?`,
		pos.Latitude, pos.Longitude, time.Now().UTC(), alertID,
	)
	if err != nil {
		return fmt.Errorf("update alert position: %w", err)
	}
	return nil
}

// AlertEvents returns the IDs of the events attached to an alert, oldest
// first.
func (s *SQLStore) AlertEvents(alertID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT event_id FROM alert_events WHERE alert_id = ? ORDER BY created_at ASC`,
		alertID,
	)
	if err != nil {
		return nil, fmt.Errorf("list alert events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
