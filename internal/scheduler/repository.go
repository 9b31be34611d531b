package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/agrisense/agrisense-core/internal/infrastructure/database"
)

// Store persists timer entries in SQLite.
type Store struct {
	db *database.DB
}

// NewStore creates a timer store backed by db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Save inserts or replaces the timer for an entry's device. One timer per
// device; setting a new one overwrites the old.
func (s *Store) Save(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_timers (device, on_at, off_at, daily, enabled)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(device) DO UPDATE SET
			on_at = excluded.on_at,
			off_at = excluded.off_at,
			daily = excluded.daily,
			enabled = excluded.enabled`,
		entry.Device,
		entry.OnAt.UTC(),
		entry.OffAt.UTC(),
		boolToInt(entry.Daily),
		boolToInt(entry.Enabled),
	)
	if err != nil {
		return fmt.Errorf("saving timer for %s: %w", entry.Device, err)
	}
	return nil
}

// Delete removes a device's timer. Deleting a missing timer is not an error.
func (s *Store) Delete(ctx context.Context, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM device_timers WHERE device = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("deleting timer for %s: %w", deviceID, err)
	}
	return nil
}

// Get returns a device's timer, or ErrTimerNotFound.
func (s *Store) Get(ctx context.Context, deviceID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT device, on_at, off_at, daily, enabled
		 FROM device_timers WHERE device = ?`, deviceID)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrTimerNotFound
	}
	return entry, err
}

// List returns every stored timer, ordered by device for stable output.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT device, on_at, off_at, daily, enabled
		 FROM device_timers ORDER BY device`)
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating timers: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		entry          Entry
		daily, enabled int
	)
	err := s.Scan(&entry.Device, &entry.OnAt, &entry.OffAt, &daily, &enabled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning timer: %w", err)
	}
	entry.Daily = daily != 0
	entry.Enabled = enabled != 0
	return entry, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
