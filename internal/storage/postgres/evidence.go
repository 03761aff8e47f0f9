package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// EvidenceStore is a Postgres-backed evidence.Store. Rows are keyed by
// artifact_id; related decision/control ids and artifact_type are
// projected into indexed columns so ByDecision/ByControl/ByType can
// query without scanning the JSONB body.
type EvidenceStore struct {
	db *DB
}

func NewEvidenceStore(db *DB) *EvidenceStore { return &EvidenceStore{db: db} }

func (s *EvidenceStore) Put(a domain.EvidenceArtifact) error {
	body, err := json.Marshal(a)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal evidence artifact", err)
	}
	_, err = s.db.pool.Exec(context.Background(),
		`INSERT INTO evidence_artifacts (artifact_id, decision_ids, control_ids, artifact_type, body)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ArtifactID, a.RelatedDecisionIDs, a.RelatedControlIDs, a.ArtifactType, body)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.New(errs.KindConflict, fmt.Sprintf("evidence: artifact %s already exists", a.ArtifactID))
		}
		return errs.Wrap(errs.KindPersistence, "postgres: insert evidence artifact", err)
	}
	return nil
}

func (s *EvidenceStore) Get(artifactID string) (domain.EvidenceArtifact, bool) {
	var body []byte
	err := s.db.pool.QueryRow(context.Background(),
		`SELECT body FROM evidence_artifacts WHERE artifact_id = $1`, artifactID).Scan(&body)
	if err != nil {
		return domain.EvidenceArtifact{}, false
	}
	var a domain.EvidenceArtifact
	if err := json.Unmarshal(body, &a); err != nil {
		s.db.logger.Warn("postgres: unmarshal evidence artifact", "artifact_id", artifactID, "error", err)
		return domain.EvidenceArtifact{}, false
	}
	return a, true
}

func (s *EvidenceStore) Sign(artifactID string, sig domain.DigitalSignature) error {
	a, ok := s.Get(artifactID)
	if !ok {
		return errs.New(errs.KindNotFound, fmt.Sprintf("evidence: artifact %s not found", artifactID))
	}
	if a.DigitalSignature != nil {
		return errs.New(errs.KindConflict, fmt.Sprintf("evidence: artifact %s is already signed", artifactID))
	}
	a.DigitalSignature = &sig
	body, err := json.Marshal(a)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: marshal evidence artifact", err)
	}
	tag, err := s.db.pool.Exec(context.Background(),
		`UPDATE evidence_artifacts SET body = $2 WHERE artifact_id = $1`, artifactID, body)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "postgres: sign evidence artifact", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, fmt.Sprintf("evidence: artifact %s not found", artifactID))
	}
	return nil
}

func (s *EvidenceStore) ByDecision(decisionID string) []domain.EvidenceArtifact {
	return s.queryArrayContains("decision_ids", decisionID)
}

func (s *EvidenceStore) ByControl(controlID string) []domain.EvidenceArtifact {
	return s.queryArrayContains("control_ids", controlID)
}

func (s *EvidenceStore) ByType(t domain.ArtifactType) []domain.EvidenceArtifact {
	rows, err := s.db.pool.Query(context.Background(),
		`SELECT body FROM evidence_artifacts WHERE artifact_type = $1`, t)
	if err != nil {
		s.db.logger.Warn("postgres: query evidence artifacts by type", "error", err)
		return nil
	}
	defer rows.Close()
	return scanEvidenceArtifacts(rows, s.db)
}

// queryArrayContains matches rows whose named TEXT[] column contains
// value. column is always one of the two fixed literals above, never
// caller input.
func (s *EvidenceStore) queryArrayContains(column, value string) []domain.EvidenceArtifact {
	rows, err := s.db.pool.Query(context.Background(),
		fmt.Sprintf(`SELECT body FROM evidence_artifacts WHERE $1 = ANY(%s)`, column), value)
	if err != nil {
		s.db.logger.Warn("postgres: query evidence artifacts", "column", column, "error", err)
		return nil
	}
	defer rows.Close()
	return scanEvidenceArtifacts(rows, s.db)
}

func scanEvidenceArtifacts(rows rowScanner, db *DB) []domain.EvidenceArtifact {
	var out []domain.EvidenceArtifact
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			continue
		}
		var a domain.EvidenceArtifact
		if err := json.Unmarshal(body, &a); err != nil {
			db.logger.Warn("postgres: unmarshal evidence artifact row", "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}
