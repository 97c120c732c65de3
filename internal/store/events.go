package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// TriggerEvent is one fired trigger and the outcome of its action.
type TriggerEvent struct {
	ID          string    `json:"id"`
	FiredAt     time.Time `json:"fired_at"`
	PersonCount int       `json:"person_count"`
	CloseCount  int       `json:"close_count"`
	Plugin      string    `json:"plugin,omitempty"`
	Action      string    `json:"action,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// EventRepository reads and writes trigger events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the trigger event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

const eventColumns = `id, fired_at, person_count, close_count, plugin, action, error`

// Create inserts e. An empty ID is replaced with a new UUID.
func (r *EventRepository) Create(e *TriggerEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := r.db.Exec(
		`INSERT INTO trigger_events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.FiredAt.UnixNano(), e.PersonCount, e.CloseCount, e.Plugin, e.Action, e.Error,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*TriggerEvent, error) {
	e := &TriggerEvent{}
	var firedAt int64
	if err := row.Scan(&e.ID, &firedAt, &e.PersonCount, &e.CloseCount, &e.Plugin, &e.Action, &e.Error); err != nil {
		return nil, err
	}
	e.FiredAt = time.Unix(0, firedAt).UTC()
	return e, nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*TriggerEvent, error) {
	e, err := scanEvent(r.db.QueryRow(
		`SELECT `+eventColumns+` FROM trigger_events WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// List returns the most recent events first. A non-positive limit uses
// DefaultListLimit.
func (r *EventRepository) List(limit int) ([]*TriggerEvent, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(
		`SELECT `+eventColumns+` FROM trigger_events ORDER BY fired_at DESC, id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []*TriggerEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of journaled events.
func (r *EventRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM trigger_events`).Scan(&n)
	return n, err
}

// DeleteBefore removes events fired strictly before t and returns how many
// were removed.
func (r *EventRepository) DeleteBefore(t time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM trigger_events WHERE fired_at < ?`, t.UnixNano())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
