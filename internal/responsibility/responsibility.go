// Package responsibility implements the Responsibility Tracker (C9):
// one append-only record per decision assigning accountability, with a
// single permitted mutation (mark_reviewed).
//
// The append-plus-single-mutation shape is grounded on akashi's
// internal/service/decisions/service.go transactional-write pattern,
// adapted from trace/event persistence to the spec's
// decision-accountability record.
package responsibility

import (
	"fmt"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Store persists ResponsibilityRecords, one per decision.
type Store interface {
	Put(r domain.ResponsibilityRecord) error
	Get(decisionID string) (domain.ResponsibilityRecord, bool)
	Update(r domain.ResponsibilityRecord) error
	ByParty(party string) []domain.ResponsibilityRecord
	PendingReview() []domain.ResponsibilityRecord
	Overrides() []domain.ResponsibilityRecord
	All() []domain.ResponsibilityRecord
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	byID map[string]domain.ResponsibilityRecord
}

func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]domain.ResponsibilityRecord)}
}

func (m *MemStore) Put(r domain.ResponsibilityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[r.DecisionID]; exists {
		return errs.New(errs.KindConflict, fmt.Sprintf("responsibility: decision %s already has a record", r.DecisionID))
	}
	m.byID[r.DecisionID] = r
	return nil
}

func (m *MemStore) Get(decisionID string) (domain.ResponsibilityRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[decisionID]
	return r, ok
}

func (m *MemStore) Update(r domain.ResponsibilityRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[r.DecisionID]; !exists {
		return errs.New(errs.KindNotFound, fmt.Sprintf("responsibility: no record for decision %s", r.DecisionID))
	}
	m.byID[r.DecisionID] = r
	return nil
}

func (m *MemStore) ByParty(party string) []domain.ResponsibilityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ResponsibilityRecord
	for _, r := range m.byID {
		if r.ResponsibleParty == party {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemStore) PendingReview() []domain.ResponsibilityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ResponsibilityRecord
	for _, r := range m.byID {
		if r.ReviewRequired && r.ReviewedAt == nil {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemStore) Overrides() []domain.ResponsibilityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ResponsibilityRecord
	for _, r := range m.byID {
		if r.OverrideAI != nil && *r.OverrideAI {
			out = append(out, r)
		}
	}
	return out
}

func (m *MemStore) All() []domain.ResponsibilityRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ResponsibilityRecord, 0, len(m.byID))
	for _, r := range m.byID {
		out = append(out, r)
	}
	return out
}

// Tracker records and queries responsibility for decisions (spec §4.9).
type Tracker struct {
	store Store
}

func New(store Store) *Tracker {
	return &Tracker{store: store}
}

// RecordRequest is the input to Record.
type RecordRequest struct {
	DecisionID          string
	DecisionMaker       domain.DecisionMaker
	ResponsibleParty    string
	Role                string
	Reasoning           string
	Confidence          float64
	ResponsibilityLevel domain.ResponsibilityLevel
	OverrideAI          *bool
	AIRecommendation    string
	ReviewRequired      bool
}

// Record creates the (sole) ResponsibilityRecord for a decision.
func (t *Tracker) Record(req RecordRequest) (domain.ResponsibilityRecord, error) {
	if req.DecisionID == "" {
		return domain.ResponsibilityRecord{}, errs.New(errs.KindValidation, "responsibility: decision id required")
	}
	if req.ResponsibleParty == "" {
		return domain.ResponsibilityRecord{}, errs.New(errs.KindValidation, "responsibility: responsible party required")
	}

	r := domain.ResponsibilityRecord{
		DecisionID:          req.DecisionID,
		DecisionMaker:       req.DecisionMaker,
		ResponsibleParty:    req.ResponsibleParty,
		Role:                req.Role,
		Reasoning:           req.Reasoning,
		Confidence:          req.Confidence,
		ResponsibilityLevel: req.ResponsibilityLevel,
		OverrideAI:          req.OverrideAI,
		AIRecommendation:    req.AIRecommendation,
		ReviewRequired:      req.ReviewRequired,
		CreatedAt:           time.Now().UTC(),
	}
	if err := t.store.Put(r); err != nil {
		return domain.ResponsibilityRecord{}, err
	}
	return r, nil
}

// MarkReviewed is the sole permitted mutation of a ResponsibilityRecord
// (spec §4.9: "the only field that may change after creation").
func (t *Tracker) MarkReviewed(decisionID, reviewedBy string) (domain.ResponsibilityRecord, error) {
	r, ok := t.store.Get(decisionID)
	if !ok {
		return domain.ResponsibilityRecord{}, errs.New(errs.KindNotFound, fmt.Sprintf("responsibility: no record for decision %s", decisionID))
	}
	now := time.Now().UTC()
	r.ReviewedBy = reviewedBy
	r.ReviewedAt = &now
	if err := t.store.Update(r); err != nil {
		return domain.ResponsibilityRecord{}, err
	}
	return r, nil
}

func (t *Tracker) Get(decisionID string) (domain.ResponsibilityRecord, bool) { return t.store.Get(decisionID) }
func (t *Tracker) ByParty(party string) []domain.ResponsibilityRecord        { return t.store.ByParty(party) }
func (t *Tracker) PendingReview() []domain.ResponsibilityRecord              { return t.store.PendingReview() }
func (t *Tracker) AIOverrides() []domain.ResponsibilityRecord                { return t.store.Overrides() }
func (t *Tracker) All() []domain.ResponsibilityRecord                        { return t.store.All() }
