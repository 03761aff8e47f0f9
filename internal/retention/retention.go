// Package retention implements Retention & Legal Hold (C11):
// classifying ledger entries into retention classes, freezing entries
// under legal hold, and redacting PII on anonymization.
//
// The classification-plus-hold model is grounded directly on akashi's
// internal/storage/retention.go, which already implements a
// retention-class/legal-hold/anonymization model for Postgres rows;
// generalized here from row retention to ledger-entry retention.
package retention

import (
	"strings"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

// piiKeys names context/data keys treated as obvious personal data
// markers for gdpr_intersect classification and anonymization (spec
// §4.11).
var piiKeys = map[string]bool{
	"email":        true,
	"name":         true,
	"ssn":          true,
	"phone":        true,
	"address":      true,
	"date_of_birth": true,
	"ip_address":   true,
}

// redactedFields are always stripped on anonymization, regardless of
// retention class (spec §4.11 "redacts actor, user_intent, request_id,
// and obvious PII keys").
var redactedFields = map[string]bool{
	"actor":       true,
	"user_intent": true,
	"request_id":  true,
}

// Classifier buckets entries into retention classes.
type Classifier struct{}

func NewClassifier() *Classifier { return &Classifier{} }

// ClassifyInput carries the entry fields relevant to classification.
type ClassifyInput struct {
	EventType      domain.LedgerEventType
	Decision       domain.Verdict
	RiskLevel      int
	DataClasses    []domain.DataClass
	ReviewRequired bool
	Data           map[string]any
}

// Classify assigns a RetentionClass per spec §4.11's rules, in
// precedence order: high_risk, then gdpr_intersect, then standard.
func (c *Classifier) Classify(in ClassifyInput) domain.RetentionClass {
	if in.EventType == domain.EventPolicyLoad {
		return domain.RetentionHighRisk
	}
	if in.RiskLevel >= 4 {
		return domain.RetentionHighRisk
	}
	if in.Decision == domain.VerdictDeny {
		return domain.RetentionHighRisk
	}
	if in.ReviewRequired {
		return domain.RetentionHighRisk
	}
	if explicitlyPII(in.DataClasses) {
		return domain.RetentionHighRisk
	}
	if hasPersonalDataMarkers(in.Data) {
		return domain.RetentionGDPRIntersect
	}
	return domain.RetentionStandard
}

// explicitlyPII reports whether the request declared itself as
// touching pii/phi data classes — spec's "PII-touching decisions"
// bucket into high_risk outright.
func explicitlyPII(dataClasses []domain.DataClass) bool {
	for _, dc := range dataClasses {
		if dc == "pii" || dc == "phi" {
			return true
		}
	}
	return false
}

// hasPersonalDataMarkers reports whether data carries obvious personal
// data fields without having been explicitly declared pii/phi — the
// spec's residual "anything else containing personal data markers"
// bucket (gdpr_intersect).
func hasPersonalDataMarkers(data map[string]any) bool {
	for k := range data {
		if piiKeys[strings.ToLower(k)] {
			return true
		}
	}
	return false
}

// HoldStore persists legal holds. MemStore is the zero-config default;
// internal/storage/postgres.RetentionStore backs it durably when
// LEXECON_POSTGRES_URL is configured.
type HoldStore interface {
	Put(h domain.LegalHold) error
	All() []domain.LegalHold
}

// MemStore is an in-memory HoldStore.
type MemStore struct {
	mu    sync.RWMutex
	holds []domain.LegalHold
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Put(h domain.LegalHold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds = append(m.holds, h)
	return nil
}

func (m *MemStore) All() []domain.LegalHold {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.LegalHold, len(m.holds))
	copy(out, m.holds)
	return out
}

// Service applies legal holds and anonymization over classified
// entries (spec §4.11).
type Service struct {
	classifier *Classifier
	store      HoldStore
}

// New builds a Service backed by an in-memory HoldStore.
func New() *Service {
	return NewWithStore(NewMemStore())
}

// NewWithStore builds a Service backed by the given HoldStore.
func NewWithStore(store HoldStore) *Service {
	return &Service{classifier: NewClassifier(), store: store}
}

// Classify delegates to the Classifier.
func (s *Service) Classify(in ClassifyInput) domain.RetentionClass {
	return s.classifier.Classify(in)
}

// ApplyLegalHold freezes the named entries (or all entries, if
// entryIDs is empty) from deletion/anonymization.
func (s *Service) ApplyLegalHold(holdID, reason string, entryIDs []string, requester string) (domain.LegalHold, error) {
	hold := domain.LegalHold{
		HoldID:    holdID,
		Reason:    reason,
		EntryIDs:  entryIDs,
		Requester: requester,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Put(hold); err != nil {
		return domain.LegalHold{}, err
	}
	return hold, nil
}

// IsHeld reports whether entryID is covered by any active legal hold.
func (s *Service) IsHeld(entryID string) bool {
	for _, h := range s.store.All() {
		if h.AppliesTo(entryID) {
			return true
		}
	}
	return false
}

// Anonymize redacts actor/user_intent/request_id and obvious PII keys
// from data, returning a new map; the input is never mutated. Entries
// under legal hold are returned unchanged.
func (s *Service) Anonymize(entryID string, data map[string]any) map[string]any {
	if s.IsHeld(entryID) {
		return data
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if redactedFields[k] || piiKeys[strings.ToLower(k)] {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = v
	}
	return out
}
