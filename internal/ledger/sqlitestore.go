package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver, registered under "sqlite"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

// SQLiteStore is the default/dev durable Store, backed by
// modernc.org/sqlite (CGo-free) in a single file matching spec's
// "SQLite-backed persistence" requirement.
type SQLiteStore struct {
	mu sync.Mutex // serializes writes; database/sql already pools reads safely
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_entries (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	entry_id      TEXT NOT NULL UNIQUE,
	event_type    TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	data          TEXT NOT NULL,
	previous_hash TEXT NOT NULL,
	entry_hash    TEXT NOT NULL UNIQUE
);
CREATE INDEX IF NOT EXISTS idx_ledger_event_type ON ledger_entries(event_type);
CREATE INDEX IF NOT EXISTS idx_ledger_timestamp ON ledger_entries(timestamp);
`

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed ledger
// store at path.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer discipline matches the ledger's own mutex

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: create sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Append(ctx context.Context, entry domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("ledger: marshal entry data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (entry_id, event_type, timestamp, data, previous_hash, entry_hash)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.EntryID, string(entry.EventType), entry.Timestamp.UTC().Format(time.RFC3339Nano),
		string(data), entry.PreviousHash, entry.EntryHash,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Tail(ctx context.Context) (domain.LedgerEntry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT entry_id, event_type, timestamp, data, previous_hash, entry_hash
		 FROM ledger_entries ORDER BY seq DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return domain.LedgerEntry{}, false, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) GetByHash(ctx context.Context, hash string) (domain.LedgerEntry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT entry_id, event_type, timestamp, data, previous_hash, entry_hash
		 FROM ledger_entries WHERE entry_hash = ?`, hash)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return domain.LedgerEntry{}, false, nil
	}
	if err != nil {
		return domain.LedgerEntry{}, false, err
	}
	return entry, true, nil
}

func (s *SQLiteStore) GetByType(ctx context.Context, t domain.LedgerEventType) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, event_type, timestamp, data, previous_hash, entry_hash
		 FROM ledger_entries WHERE event_type = ? ORDER BY seq ASC`, string(t))
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries by type: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *SQLiteStore) All(ctx context.Context) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_id, event_type, timestamp, data, previous_hash, entry_hash
		 FROM ledger_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("ledger: query all entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (domain.LedgerEntry, error) {
	var (
		entry     domain.LedgerEntry
		eventType string
		timestamp string
		data      string
	)
	if err := row.Scan(&entry.EntryID, &eventType, &timestamp, &data, &entry.PreviousHash, &entry.EntryHash); err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.EventType = domain.LedgerEventType(eventType)
	ts, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("ledger: parse timestamp %q: %w", timestamp, err)
	}
	entry.Timestamp = ts
	if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("ledger: unmarshal entry data: %w", err)
	}
	return entry, nil
}

func scanEntries(rows *sql.Rows) ([]domain.LedgerEntry, error) {
	var out []domain.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
