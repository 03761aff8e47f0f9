// Package risk implements the Risk Service (C5): deterministic,
// weighted dimensional scoring with a one-risk-per-decision invariant.
//
// The additive weighted-dimension scoring style is grounded on
// invarity-go's internal/risk/risk.go (Compute), adapted from
// invarity's tool-profile heuristic scoring to the spec's fixed
// six-dimension weighted average.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Store persists Risk records, keyed by decision id (spec §9:
// "pluggable storage interface per service").
type Store interface {
	Get(decisionID string) (domain.Risk, bool)
	Put(r domain.Risk) error
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Risk
}

// NewMemStore constructs an empty in-memory risk store.
func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]domain.Risk)}
}

func (m *MemStore) Get(decisionID string) (domain.Risk, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[decisionID]
	return r, ok
}

func (m *MemStore) Put(r domain.Risk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[r.DecisionID]; exists {
		return errs.New(errs.KindConflict, fmt.Sprintf("risk: decision %s already has a risk assessment", r.DecisionID))
	}
	m.byID[r.DecisionID] = r
	return nil
}

// Service assesses and stores risk, enforcing the one-risk-per-decision
// invariant (spec §4.5, §8 invariant 3).
type Service struct {
	store   Store
	weights map[string]float64
}

// New constructs a Service backed by store, using the spec's default
// dimension weights.
func New(store Store) *Service {
	return &Service{store: store, weights: domain.DefaultDimensionWeights}
}

// AssessRequest is the input to Assess.
type AssessRequest struct {
	DecisionID         string
	Dimensions         domain.RiskDimensions
	Likelihood         *float64
	Impact             *int
	Factors            []string
	MitigationsApplied []string
	Metadata           map[string]any
}

// Assess computes and stores a Risk for a decision. A second call for
// the same decision fails with a conflict error.
func (s *Service) Assess(req AssessRequest) (domain.Risk, error) {
	if !domain.ValidDecisionID(req.DecisionID) {
		return domain.Risk{}, errs.New(errs.KindValidation, fmt.Sprintf("risk: invalid decision id %q", req.DecisionID))
	}
	if _, exists := s.store.Get(req.DecisionID); exists {
		return domain.Risk{}, errs.New(errs.KindConflict, fmt.Sprintf("risk: decision %s already has a risk assessment", req.DecisionID))
	}

	overall, err := weightedAverage(req.Dimensions, s.weights)
	if err != nil {
		return domain.Risk{}, errs.Wrap(errs.KindValidation, "compute weighted risk score", err)
	}

	risk := domain.Risk{
		RiskID:             domain.RiskIDFor(req.DecisionID),
		DecisionID:         req.DecisionID,
		OverallScore:       overall,
		RiskLevel:          domain.RiskLevelFor(overall),
		Dimensions:         req.Dimensions,
		Likelihood:         req.Likelihood,
		Impact:             req.Impact,
		Factors:            req.Factors,
		MitigationsApplied: req.MitigationsApplied,
		Timestamp:          time.Now().UTC(),
		Metadata:           req.Metadata,
	}

	if err := s.store.Put(risk); err != nil {
		return domain.Risk{}, err
	}
	return risk, nil
}

// Get returns the risk previously assessed for a decision, if any.
func (s *Service) Get(decisionID string) (domain.Risk, bool) {
	return s.store.Get(decisionID)
}

// weightedAverage computes round(Σ w_i · d_i / Σ w_i) over populated
// dimensions only (spec §4.5).
func weightedAverage(d domain.RiskDimensions, weights map[string]float64) (int, error) {
	type entry struct {
		name  string
		value *int
	}
	entries := []entry{
		{"security", d.Security},
		{"privacy", d.Privacy},
		{"compliance", d.Compliance},
		{"operational", d.Operational},
		{"reputational", d.Reputational},
		{"financial", d.Financial},
	}

	var weightSum, scoreSum float64
	for _, e := range entries {
		if e.value == nil {
			continue
		}
		w := weights[e.name]
		weightSum += w
		scoreSum += w * float64(*e.value)
	}
	if weightSum == 0 {
		return 0, fmt.Errorf("risk: no dimensions populated")
	}
	return int(math.Round(scoreSum / weightSum)), nil
}

// ValidateWeights checks that weights sum to 1.0 within tolerance
// (spec §4.5 "weights must sum to 1.0 ± 0.01").
func ValidateWeights(weights map[string]float64) error {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("risk: weights sum to %.4f, must be 1.0 ± 0.01", sum)
	}
	return nil
}
