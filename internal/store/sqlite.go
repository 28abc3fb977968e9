package store

import (
	"database/sql"
	"encoding/json"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"loadtest-server/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS load_test_runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_load_test_runs_started_at ON load_test_runs(started_at);
`

// SQLiteStore keeps records in a single sqlite table
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to create schema")
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Add(rec *models.RunRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode run record")
	}

	_, err = s.db.Exec(`
		INSERT INTO load_test_runs (id, status, started_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, payload = excluded.payload
	`, rec.ID, string(rec.Status), rec.StartedAt.UnixNano(), string(data))
	if err != nil {
		return errors.Wrapf(err, "failed to store run %s", rec.ID)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*models.RunRecord, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM load_test_runs WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", id)
	}

	var rec models.RunRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to decode run %s", id)
	}
	return &rec, nil
}

func (s *SQLiteStore) GetAll() ([]*models.RunRecord, error) {
	rows, err := s.db.Query("SELECT payload FROM load_test_runs ORDER BY started_at, id")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	defer rows.Close()

	var result []*models.RunRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		var rec models.RunRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, errors.Wrap(err, "failed to decode run record")
		}
		result = append(result, &rec)
	}
	return result, rows.Err()
}

func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM load_test_runs WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete run %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to count deleted runs")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
