package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"safewalk/internal/contacts"
	"safewalk/internal/emergency"
)

// SQLiteStore implements contacts.Directory and emergency.History using
// modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	email        TEXT NOT NULL DEFAULT '',
	relationship TEXT NOT NULL DEFAULT '',
	is_primary   INTEGER NOT NULL DEFAULT 0,
	is_active    INTEGER NOT NULL DEFAULT 1,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS preferences (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	blob       TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS alerts (
	id         TEXT PRIMARY KEY,
	alert_type TEXT NOT NULL,
	status     TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_active ON contacts(is_active);
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- contacts ---

// List returns every stored contact, primaries first. It satisfies
// contacts.Directory.
func (s *SQLiteStore) List(ctx context.Context) ([]contacts.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, phone_number, email, relationship, is_primary, is_active, created_at, updated_at
		 FROM contacts ORDER BY is_primary DESC, name ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var out []contacts.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

// Add stores a new contact and returns it with its generated id.
func (s *SQLiteStore) Add(ctx context.Context, c contacts.Contact) (*contacts.Contact, error) {
	if c.Name == "" || c.PhoneNumber == "" {
		return nil, eris.New("contact needs a name and a phone number")
	}
	c.ID = uuid.New().String()
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, name, phone_number, email, relationship, is_primary, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.PhoneNumber, c.Email, c.Relationship, boolInt(c.Primary), boolInt(c.Active), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert contact")
	}
	if c.Primary {
		if err := s.SetPrimary(ctx, c.ID); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// Update rewrites a contact's mutable fields.
func (s *SQLiteStore) Update(ctx context.Context, c contacts.Contact) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET name = ?, phone_number = ?, email = ?, relationship = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.PhoneNumber, c.Email, c.Relationship, boolInt(c.Active), time.Now().UTC(), c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact %s", c.ID)
	}
	return checkRowsAffected(res, "contact", c.ID)
}

// Remove deletes a contact.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: remove contact %s", id)
	}
	return checkRowsAffected(res, "contact", id)
}

// SetPrimary marks one contact as primary, clearing any previous primary in
// the same transaction.
func (s *SQLiteStore) SetPrimary(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin set primary")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE contacts SET is_primary = 0, updated_at = ? WHERE is_primary = 1 AND id != ?`, now, id,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear primary")
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE contacts SET is_primary = 1, updated_at = ? WHERE id = ?`, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set primary %s", id)
	}
	if err := checkRowsAffected(res, "contact", id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit set primary")
}

// --- preferences ---

// GetPreferences returns the stored preferences, or defaults when unset.
func (s *SQLiteStore) GetPreferences(ctx context.Context) (Preferences, error) {
	row := s.db.QueryRowContext(ctx, `SELECT blob FROM preferences WHERE id = 1`)

	var blob string
	err := row.Scan(&blob)
	if err == sql.ErrNoRows {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, eris.Wrap(err, "sqlite: get preferences")
	}
	var p Preferences
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return Preferences{}, eris.Wrap(err, "sqlite: unmarshal preferences")
	}
	return p, nil
}

// SetPreferences replaces the stored preferences.
func (s *SQLiteStore) SetPreferences(ctx context.Context, p Preferences) error {
	blob, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal preferences")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO preferences (id, blob, updated_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		string(blob), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set preferences")
}

// --- alert history ---

// AppendAlert archives an alert record. Re-appending the same alert id
// overwrites the row, so later status transitions can refresh the record.
// It satisfies emergency.History.
func (s *SQLiteStore) AppendAlert(ctx context.Context, alert emergency.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal alert")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO alerts (id, alert_type, status, payload, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status = excluded.status, payload = excluded.payload`,
		alert.ID, string(alert.Type), string(alert.Status), string(payload), alert.Timestamp.UTC(),
	)
	return eris.Wrapf(err, "sqlite: append alert %s", alert.ID)
}

// RecentAlerts returns the newest alerts first, up to limit (default 20).
func (s *SQLiteStore) RecentAlerts(ctx context.Context, limit int) ([]emergency.Alert, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM alerts ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent alerts")
	}
	defer rows.Close()

	var out []emergency.Alert
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alert")
		}
		var a emergency.Alert
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal alert")
		}
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: recent alerts iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*contacts.Contact, error) {
	var c contacts.Contact
	var primary, active int

	err := row.Scan(&c.ID, &c.Name, &c.PhoneNumber, &c.Email, &c.Relationship,
		&primary, &active, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("contact not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}
	c.Primary = primary == 1
	c.Active = active == 1
	return &c, nil
}
