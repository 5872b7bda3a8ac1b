// Package store persists harvested answers keyed by the platform's content
// identity (library id, version). Writes are last-write-wins upserts; reads
// miss with ErrNotFound rather than failing, so callers can fall back to
// "no cached answer" on any storage trouble.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates no answer is cached for the requested key.
var ErrNotFound = errors.New("answer not found")

// Answer is an ordered sequence of answer options, e.g. ["A","C"].
type Answer []string

// Store is the persistent answer cache shared by the pipelines.
type Store interface {
	// Save upserts the payload for (libraryID, version).
	Save(libraryID, version string, payload Answer) error
	// Get returns the most recently saved payload for the exact key,
	// or ErrNotFound.
	Get(libraryID, version string) (Answer, error)
	// Count reports the number of cached answers.
	Count() (int, error)
	Close() error
}

// Open selects a backend from the DSN: "postgres://..." opens a PostgreSQL
// store, anything else is treated as a SQLite file path.
func Open(dsn string) (Store, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return OpenPostgres(dsn)
	}
	return OpenSQLite(dsn)
}

// encodePayload serializes an answer for storage as a JSON array.
func encodePayload(payload Answer) (string, error) {
	data, err := json.Marshal([]string(payload))
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// decodePayload deserializes a stored payload. Rows written by earlier tool
// versions may hold a bare JSON string instead of an array; those are
// normalized to a one-element answer.
func decodePayload(raw string) (Answer, error) {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return Answer(list), nil
	}
	var single string
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return Answer{single}, nil
	}
	return nil, fmt.Errorf("undecodable payload %q", raw)
}
