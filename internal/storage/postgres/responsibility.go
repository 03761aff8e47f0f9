package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// ResponsibilityStore is a Postgres-backed responsibility.Store. One
// row per decision_id; responsible_party and review_required are
// projected into indexed columns so ByParty/PendingReview can query
// without scanning the JSONB body.
type ResponsibilityStore struct {
	db *DB
}

func NewResponsibilityStore(db *DB) *ResponsibilityStore { return &ResponsibilityStore{db: db} }

func (s *ResponsibilityStore) Put(r domain.ResponsibilityRecord) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal responsibility record", err)
	}
	_, err = s.db.pool.Exec(context.Background(),
		`INSERT INTO responsibility_records (decision_id, responsible_party, review_required, body)
		 VALUES ($1, $2, $3, $4)`,
		r.DecisionID, r.ResponsibleParty, r.ReviewRequired, body)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.New(errs.KindConflict, fmt.Sprintf("responsibility: decision %s already has a record", r.DecisionID))
		}
		return errs.Wrap(errs.KindPersistence, "postgres: insert responsibility record", err)
	}
	return nil
}

func (s *ResponsibilityStore) Get(decisionID string) (domain.ResponsibilityRecord, bool) {
	var body []byte
	err := s.db.pool.QueryRow(context.Background(),
		`SELECT body FROM responsibility_records WHERE decision_id = $1`, decisionID).Scan(&body)
	if err != nil {
		return domain.ResponsibilityRecord{}, false
	}
	var r domain.ResponsibilityRecord
	if err := json.Unmarshal(body, &r); err != nil {
		s.db.logger.Warn("postgres: unmarshal responsibility record", "decision_id", decisionID, "error", err)
		return domain.ResponsibilityRecord{}, false
	}
	return r, true
}

func (s *ResponsibilityStore) Update(r domain.ResponsibilityRecord) error {
	body, err := json.Marshal(r)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal responsibility record", err)
	}
	tag, err := s.db.pool.Exec(context.Background(),
		`UPDATE responsibility_records
		 SET responsible_party = $2, review_required = $3, body = $4
		 WHERE decision_id = $1`,
		r.DecisionID, r.ResponsibleParty, r.ReviewRequired, body)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: update responsibility record", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, fmt.Sprintf("responsibility: no record for decision %s", r.DecisionID))
	}
	return nil
}

func (s *ResponsibilityStore) ByParty(party string) []domain.ResponsibilityRecord {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM responsibility_records WHERE responsible_party = $1`, party)
	if err != nil {
		s.db.logger.Warn("postgres: query responsibility records by party", "error", err)
		return nil
	}
	defer rows.Close()
	return scanResponsibilityRecords(rows, s.db)
}

func (s *ResponsibilityStore) PendingReview() []domain.ResponsibilityRecord {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM responsibility_records WHERE review_required AND body->>'reviewed_at' IS NULL`)
	if err != nil {
		s.db.logger.Warn("postgres: query pending-review responsibility records", "error", err)
		return nil
	}
	defer rows.Close()
	return scanResponsibilityRecords(rows, s.db)
}

func (s *ResponsibilityStore) Overrides() []domain.ResponsibilityRecord {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM responsibility_records WHERE (body->>'override_ai')::boolean IS TRUE`)
	if err != nil {
		s.db.logger.Warn("postgres: query overridden responsibility records", "error", err)
		return nil
	}
	defer rows.Close()
	return scanResponsibilityRecords(rows, s.db)
}

func (s *ResponsibilityStore) All() []domain.ResponsibilityRecord {
	rows, err := s.db.pool.Query(context.Background(), `SELECT body FROM responsibility_records`)
	if err != nil {
		s.db.logger.Warn("postgres: query all responsibility records", "error", err)
		return nil
	}
	defer rows.Close()
	return scanResponsibilityRecords(rows, s.db)
}

func scanResponsibilityRecords(rows rowScanner, db *DB) []domain.ResponsibilityRecord {
	var out []domain.ResponsibilityRecord
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var r domain.ResponsibilityRecord
		if err := json.Unmarshal(body, &r); err != nil {
			db.logger.Warn("postgres: unmarshal responsibility record row", "error", err)
			continue
		}
		out = append(out, r)
	}
	return out
}
