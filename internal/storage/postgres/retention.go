package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

// RetentionStore is a Postgres-backed retention.HoldStore.
type RetentionStore struct {
	db *DB
}

func NewRetentionStore(db *DB) *RetentionStore { return &RetentionStore{db: db} }

func (s *RetentionStore) Put(h domain.LegalHold) error {
	body, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("postgres: marshal legal hold: %w", err)
	}
	_, err = s.db.pool.Exec(context.Background(),
		`INSERT INTO legal_holds (hold_id, body) VALUES ($1, $2)`, h.HoldID, body)
	if err != nil {
		return fmt.Errorf("postgres: insert legal hold: %w", err)
	}
	return nil
}

func (s *RetentionStore) All() []domain.LegalHold {
	rows, err := s.db.pool.Query(context.Background(), `SELECT body FROM legal_holds`)
	if err != nil {
		s.db.logger.Warn("postgres: query legal holds", "error", err)
		return nil
	}
	defer rows.Close()

	var out []domain.LegalHold
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var h domain.LegalHold
		if err := json.Unmarshal(body, &h); err != nil {
			continue
		}
		out = append(out, h)
	}
	return out
}
