package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// OverrideStore is a Postgres-backed override.Store. Overrides are
// append-only (spec §4.7: an override record is never updated or
// deleted once written), so there is no Update path here.
type OverrideStore struct {
	db *DB
}

func NewOverrideStore(db *DB) *OverrideStore { return &OverrideStore{db: db} }

func (s *OverrideStore) Put(o domain.Override) error {
	body, err := json.Marshal(o)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal override", err)
	}
	_, err = s.db.pool.Exec(context.Background(),
		`INSERT INTO overrides (override_id, decision_id, body) VALUES ($1, $2, $3)`,
		o.OverrideID, o.DecisionID, body)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.New(errs.KindConflict, fmt.Sprintf("override: %s already exists", o.OverrideID))
		}
		return errs.Wrap(errs.KindPersistence, "postgres: insert override", err)
	}
	return nil
}

func (s *OverrideStore) ByDecision(decisionID string) []domain.Override {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM overrides WHERE decision_id = $1`, decisionID)
	if err != nil {
		s.db.logger.Warn("postgres: query overrides by decision", "error", err)
		return nil
	}
	defer rows.Close()

	var out []domain.Override
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var o domain.Override
		if err := json.Unmarshal(body, &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}
