package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// EscalationStore is a Postgres-backed escalation.Store.
type EscalationStore struct {
	db *DB
}

func NewEscalationStore(db *DB) *EscalationStore { return &EscalationStore{db: db} }

func (s *EscalationStore) Put(e domain.Escalation) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal escalation", err)
	}
	_, err = s.db.pool.Exec(context.Background(),
		`INSERT INTO escalations (escalation_id, decision_id, status, body)
		 VALUES ($1, $2, $3, $4)`,
		e.EscalationID, e.DecisionID, e.Status, body)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.New(errs.KindConflict, fmt.Sprintf("escalation: %s already exists", e.EscalationID))
		}
		return errs.Wrap(errs.KindPersistence, "postgres: insert escalation", err)
	}
	return nil
}

func (s *EscalationStore) Get(escalationID string) (domain.Escalation, bool) {
	var body []byte
	err := s.db.pool.QueryRow(context.Background(),
		`SELECT body FROM escalations WHERE escalation_id = $1`, escalationID).Scan(&body)
	if err != nil {
		return domain.Escalation{}, false
	}
	var e domain.Escalation
	if err := json.Unmarshal(body, &e); err != nil {
		s.db.logger.Warn("postgres: unmarshal escalation", "escalation_id", escalationID, "error", err)
		return domain.Escalation{}, false
	}
	return e, true
}

func (s *EscalationStore) Update(e domain.Escalation) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal escalation", err)
	}
	tag, err := s.db.pool.Exec(context.Background(),
		`UPDATE escalations SET status = $2, body = $3 WHERE escalation_id = $1`,
		e.EscalationID, e.Status, body)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: update escalation", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, fmt.Sprintf("escalation: %s not found", e.EscalationID))
	}
	return nil
}

func (s *EscalationStore) ByDecision(decisionID string) []domain.Escalation {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM escalations WHERE decision_id = $1`, decisionID)
	if err != nil {
		s.db.logger.Warn("postgres: query escalations by decision", "error", err)
		return nil
	}
	defer rows.Close()
	return scanEscalations(rows, s.db)
}

func (s *EscalationStore) NonTerminal() []domain.Escalation {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM escalations WHERE status NOT IN ('resolved', 'expired')`)
	if err != nil {
		s.db.logger.Warn("postgres: query non-terminal escalations", "error", err)
		return nil
	}
	defer rows.Close()
	return scanEscalations(rows, s.db)
}

func scanEscalations(rows rowScanner, db *DB) []domain.Escalation {
	var out []domain.Escalation
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var e domain.Escalation
		if err := json.Unmarshal(body, &e); err != nil {
			db.logger.Warn("postgres: unmarshal escalation row", "error", err)
			continue
		}
		out = append(out, e)
	}
	return out
}
