package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// SQLStore persists answers in SQL (SQLite or PostgreSQL). A single mutex
// serializes all access; call volume is low and correctness of interleaved
// read-modify-write on one connection matters more than throughput.
type SQLStore struct {
	mu     sync.Mutex
	db     *sql.DB
	driver string
}

// OpenSQLite opens (and if needed creates) a SQLite-backed store at path.
func OpenSQLite(path string) (*SQLStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Single connection: SQLite is single-writer anyway.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, driver: driverSQLite}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres opens a PostgreSQL-backed store from a DSN.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db, driver: driverPostgres}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema() error {
	timeType := "DATETIME"
	if s.driver == driverPostgres {
		timeType = "TIMESTAMPTZ"
	}
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS answers (
		library_id TEXT NOT NULL,
		version    TEXT NOT NULL,
		payload    TEXT NOT NULL,
		updated_at %s NOT NULL,
		PRIMARY KEY (library_id, version)
	)`, timeType))
	if err != nil {
		return fmt.Errorf("ensure answers table: %w", err)
	}
	return nil
}

// ph returns the n-th SQL placeholder in the store's dialect.
func (s *SQLStore) ph(n int) string {
	if s.driver == driverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Save upserts the payload for (libraryID, version), last write wins.
func (s *SQLStore) Save(libraryID, version string, payload Answer) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO answers (library_id, version, payload, updated_at)
		VALUES (%s, %s, %s, %s)
		ON CONFLICT (library_id, version) DO UPDATE SET
			payload=excluded.payload,
			updated_at=excluded.updated_at`,
		s.ph(1), s.ph(2), s.ph(3), s.ph(4))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(query, libraryID, version, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// Get returns the cached answer for the exact key, or ErrNotFound.
func (s *SQLStore) Get(libraryID, version string) (Answer, error) {
	query := fmt.Sprintf("SELECT payload FROM answers WHERE library_id = %s AND version = %s",
		s.ph(1), s.ph(2))

	s.mu.Lock()
	defer s.mu.Unlock()
	var raw string
	err := s.db.QueryRow(query, libraryID, version).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select answer: %w", err)
	}
	return decodePayload(raw)
}

// Count reports the number of cached answers.
func (s *SQLStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM answers").Scan(&n); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLStore)(nil)
