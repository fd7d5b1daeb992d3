// Package journal keeps a persistent history of device events in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/halo-heater/internal/logic"
)

// DefaultLimit is the number of entries Recent returns for a non-positive
// limit.
const DefaultLimit = 50

// timeLayout is fixed-width so that text order is time order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Entry is a stored event.
type Entry struct {
	ID                 string            `json:"id"`
	OccurredAt         time.Time         `json:"occurred_at"`
	Type               logic.EventType   `json:"event"`
	Action             logic.Action      `json:"action,omitempty"`
	Source             string            `json:"source"`
	Menu               logic.MenuState   `json:"menu_state"`
	TriacOn            bool              `json:"triac_on"`
	Percentage         int               `json:"percentage"`
	ComfortMode        logic.ComfortMode `json:"comfort_mode"`
	Effective          float64           `json:"effective_percentage"`
	Temperature        logic.Reading     `json:"temperature"`
	TemperatureContact logic.Reading     `json:"temperature_contact"`
	TemperatureIR      logic.Reading     `json:"temperature_ir"`
}

// Journal stores events in the heater_events table.
type Journal struct {
	db *sql.DB
}

// New wraps an open database whose schema already exists.
func New(db *sql.DB) *Journal { return &Journal{db: db} }

// Open opens or creates the journal database at path, creating its
// directory if needed.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append stores e and returns its generated id.
func (j *Journal) Append(ctx context.Context, e logic.Event) (string, error) {
	id := uuid.NewString()
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO heater_events (id, occurred_at, type, action, source, menu_state, triac_on,
			percentage, comfort_mode, effective, temperature, temperature_contact, temperature_ir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		ts.UTC().Format(timeLayout),
		string(e.Type),
		string(e.Action),
		e.Source,
		string(e.Menu),
		e.TriacOn,
		e.Base,
		e.Comfort.String(),
		e.Effective,
		nullReading(e.Temperature),
		nullReading(e.TemperatureContact),
		nullReading(e.TemperatureIR),
	)
	if err != nil {
		return "", fmt.Errorf("append %s event: %w", e.Type, err)
	}
	return id, nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, occurred_at, type, action, source, menu_state, triac_on,
			percentage, comfort_mode, effective, temperature, temperature_contact, temperature_ir
		FROM heater_events
		ORDER BY occurred_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			occurred, comfort string
			typ, action, menu string
			temp, contact, ir sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &occurred, &typ, &action, &e.Source, &menu, &e.TriacOn,
			&e.Percentage, &comfort, &e.Effective, &temp, &contact, &ir); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		if e.ComfortMode, err = logic.ParseComfortMode(comfort); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		e.Type = logic.EventType(typ)
		e.Action = logic.Action(action)
		e.Menu = logic.MenuState(menu)
		e.Temperature = reading(temp)
		e.TemperatureContact = reading(contact)
		e.TemperatureIR = reading(ir)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// Prune deletes entries older than before and returns how many went.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM heater_events WHERE occurred_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

func nullReading(r logic.Reading) sql.NullFloat64 {
	return sql.NullFloat64{Float64: r.Celsius, Valid: r.Valid}
}

func reading(n sql.NullFloat64) logic.Reading {
	if !n.Valid {
		return logic.NoReading
	}
	return logic.Celsius(n.Float64)
}
