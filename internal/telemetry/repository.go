package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/agrisense/agrisense-core/internal/infrastructure/database"
)

// Repository provides durable storage for sensor readings in SQLite.
type Repository struct {
	db *database.DB
}

// NewRepository creates a reading repository backed by db.
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// SaveReading appends one reading to the history.
func (r *Repository) SaveReading(ctx context.Context, reading Reading) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_history
			(recorded_at, temperature, humidity, nitrogen, phosphorus, potassium, ph, rainfall, monthly_rainfall)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Unix(reading.Timestamp, 0).UTC(),
		reading.Temperature,
		reading.Humidity,
		reading.Nitrogen,
		reading.Phosphorus,
		reading.Potassium,
		reading.PH,
		reading.Rainfall,
		reading.MonthlyRainfall,
	)
	if err != nil {
		return fmt.Errorf("saving reading: %w", err)
	}
	return nil
}

// LatestReading returns the most recently stored reading.
// Returns ErrNoReadings when the history is empty.
func (r *Repository) LatestReading(ctx context.Context) (Reading, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT recorded_at, temperature, humidity, nitrogen, phosphorus, potassium, ph, rainfall, monthly_rainfall
		 FROM sensor_history
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT 1`)

	reading, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Reading{}, ErrNoReadings
	}
	return reading, err
}

// History returns up to limit readings, newest first.
func (r *Repository) History(ctx context.Context, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT recorded_at, temperature, humidity, nitrogen, phosphorus, potassium, ph, rainfall, monthly_rainfall
		 FROM sensor_history
		 ORDER BY recorded_at DESC, id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	readings := make([]Reading, 0, limit)
	for rows.Next() {
		reading, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return readings, nil
}

// SaveConfig stores an operator setting under key, replacing any previous
// value.
func (r *Repository) SaveConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO config (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("saving config %q: %w", key, err)
	}
	return nil
}

// LoadConfig returns the stored value for key, or ErrConfigNotFound.
func (r *Repository) LoadConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrConfigNotFound
	}
	if err != nil {
		return "", fmt.Errorf("loading config %q: %w", key, err)
	}
	return value, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanReading(s scanner) (Reading, error) {
	var (
		reading    Reading
		recordedAt time.Time
	)
	err := s.Scan(
		&recordedAt,
		&reading.Temperature,
		&reading.Humidity,
		&reading.Nitrogen,
		&reading.Phosphorus,
		&reading.Potassium,
		&reading.PH,
		&reading.Rainfall,
		&reading.MonthlyRainfall,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Reading{}, err
		}
		return Reading{}, fmt.Errorf("scanning reading: %w", err)
	}
	reading.Timestamp = recordedAt.Unix()
	return reading, nil
}
