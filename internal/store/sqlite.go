package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"calgrid/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite-backed event store. Timestamps are persisted as
// naive "YYYY-MM-DD HH:MM:SS" TEXT so rows compare and sort with plain
// string operators.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at dbPath and runs
// migrations. Use ":memory:" for an ephemeral store.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			description TEXT DEFAULT '',
			tag TEXT DEFAULT '',
			start_datetime TEXT NOT NULL,
			end_datetime TEXT NOT NULL,
			recurrence_id TEXT DEFAULT '',
			rrule TEXT DEFAULT '',
			original_start TEXT DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_datetime)`,
		`CREATE INDEX IF NOT EXISTS idx_events_recurrence ON events(recurrence_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

const eventColumns = `id, title, description, tag, start_datetime, end_datetime, recurrence_id, rrule, original_start`

func scanEvent(scan func(dest ...any) error) (model.Event, error) {
	var (
		ev                       model.Event
		startStr, endStr, origin string
	)
	if err := scan(&ev.ID, &ev.Title, &ev.Description, &ev.Tag,
		&startStr, &endStr, &ev.RecurrenceID, &ev.RRule, &origin); err != nil {
		return model.Event{}, err
	}

	var err error
	if ev.Start, err = model.ParseStamp(startStr); err != nil {
		return model.Event{}, fmt.Errorf("event %d start: %w", ev.ID, err)
	}
	if ev.End, err = model.ParseStamp(endStr); err != nil {
		return model.Event{}, fmt.Errorf("event %d end: %w", ev.ID, err)
	}
	if origin != "" {
		if ev.OriginalStart, err = model.ParseStamp(origin); err != nil {
			return model.Event{}, fmt.Errorf("event %d original start: %w", ev.ID, err)
		}
	}

	switch {
	case ev.RecurrenceID != "" && ev.RRule != "":
		ev.Role = model.RoleMaster
	case ev.RecurrenceID != "":
		ev.Role = model.RoleInstance
	default:
		ev.Role = model.RoleNone
	}
	return ev, nil
}

func originStamp(ev model.Event) string {
	if ev.OriginalStart.IsZero() {
		return ""
	}
	return model.FormatStamp(ev.OriginalStart)
}

// AddEvent inserts a single event and sets its ID.
func (s *Store) AddEvent(ev *model.Event) error {
	res, err := s.db.Exec(
		`INSERT INTO events (title, description, tag, start_datetime, end_datetime, recurrence_id, rrule, original_start)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Title, ev.Description, ev.Tag,
		model.FormatStamp(ev.Start), model.FormatStamp(ev.End),
		ev.RecurrenceID, ev.RRule, originStamp(*ev),
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	ev.ID = id
	return nil
}

// GetEvent returns the event with the given id, or nil when absent.
func (s *Store) GetEvent(id int64) (*model.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	ev, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent rewrites the mutable fields of a single event row.
func (s *Store) UpdateEvent(ev model.Event) error {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, tag = ?, start_datetime = ?, end_datetime = ? WHERE id = ?`,
		ev.Title, ev.Description, ev.Tag,
		model.FormatStamp(ev.Start), model.FormatStamp(ev.End), ev.ID,
	)
	return err
}

func (s *Store) DeleteEvent(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	return err
}

// EventsForDay returns every event overlapping the calendar day containing
// day (midnight to midnight, half-open), ordered by start then id.
func (s *Store) EventsForDay(day time.Time) ([]model.Event, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return s.EventsOverlapping(dayStart, dayEnd)
}

// EventsOverlapping returns events whose [start, end) interval intersects
// [from, to), ordered by start then id.
func (s *Store) EventsOverlapping(from, to time.Time) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events
		 WHERE start_datetime < ? AND end_datetime > ?
		 ORDER BY start_datetime ASC, id ASC`,
		model.FormatStamp(to), model.FormatStamp(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// AllEvents returns every stored event ordered by start then id.
func (s *Store) AllEvents() ([]model.Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY start_datetime ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.Event, error) {
	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// InsertSeries inserts a batch of events sharing a recurrence identifier
// inside one transaction, setting each ID.
func (s *Store) InsertSeries(events []model.Event) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO events (title, description, tag, start_datetime, end_datetime, recurrence_id, rrule, original_start)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range events {
		ev := &events[i]
		res, err := stmt.Exec(
			ev.Title, ev.Description, ev.Tag,
			model.FormatStamp(ev.Start), model.FormatStamp(ev.End),
			ev.RecurrenceID, ev.RRule, originStamp(*ev),
		)
		if err != nil {
			return err
		}
		id, _ := res.LastInsertId()
		ev.ID = id
	}
	return tx.Commit()
}

// SeriesEvents returns all instances of a recurrence ordered by start.
func (s *Store) SeriesEvents(recurrenceID string) ([]model.Event, error) {
	rows, err := s.db.Query(
		`SELECT `+eventColumns+` FROM events WHERE recurrence_id = ? ORDER BY start_datetime ASC, id ASC`,
		recurrenceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectEvents(rows)
}

// DeleteSeries removes every instance of a recurrence and reports how many
// rows went away.
func (s *Store) DeleteSeries(recurrenceID string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM events WHERE recurrence_id = ?`, recurrenceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateSeriesText rewrites title, description and tag on every instance of
// a recurrence.
func (s *Store) UpdateSeriesText(recurrenceID, title, description, tag string) error {
	_, err := s.db.Exec(
		`UPDATE events SET title = ?, description = ?, tag = ? WHERE recurrence_id = ?`,
		title, description, tag, recurrenceID,
	)
	return err
}

// ImportEvents inserts decoded events in one transaction and returns how
// many were written. IDs on the inputs are ignored; the database assigns
// fresh ones.
func (s *Store) ImportEvents(events []model.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	if err := s.InsertSeries(events); err != nil {
		return 0, err
	}
	return len(events), nil
}
