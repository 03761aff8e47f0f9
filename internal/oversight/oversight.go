// Package oversight implements Oversight Evidence (C12): a signed
// human-intervention log, effectiveness analytics over a time window,
// and escalation-path simulation for a decision class and role.
//
// The panel/quorum recording shape is grounded on invarity-go's
// internal/llm/{arbiter,intent_quorum}.go — there, independent voters
// each record a judgment that is aggregated and reported on; here a
// human intervention plays the same role as a single voter's judgment,
// aggregated the same way into an effectiveness report. The human-role
// taxonomy is grounded on akashi's internal/auth role model.
package oversight

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Signer signs and verifies a HumanIntervention's canonicalized form.
type Signer interface {
	Sign(obj any) (string, error)
	VerifyWithOwnKey(obj any, sig string) (bool, error)
}

// Store persists HumanIntervention records.
type Store interface {
	Put(i domain.HumanIntervention) error
	All() []domain.HumanIntervention
	InRange(start, end time.Time) []domain.HumanIntervention
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu      sync.RWMutex
	records []domain.HumanIntervention
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Put(i domain.HumanIntervention) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, i)
	return nil
}

func (m *MemStore) All() []domain.HumanIntervention {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.HumanIntervention, len(m.records))
	copy(out, m.records)
	return out
}

func (m *MemStore) InRange(start, end time.Time) []domain.HumanIntervention {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.HumanIntervention
	for _, r := range m.records {
		if r.Timestamp.Before(start) || r.Timestamp.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Service records and analyzes human interventions against AI
// recommendations (spec §4.12).
type Service struct {
	store  Store
	signer Signer
}

func New(store Store, signer Signer) *Service {
	return &Service{store: store, signer: signer}
}

// RecordRequest is the input to RecordIntervention.
type RecordRequest struct {
	InterventionType string
	AIRecommendation map[string]any
	AIConfidence     float64
	HumanDecision    map[string]any
	HumanRole        string
	Reason           string
	RequestContext   map[string]any
	RespondedAt      time.Time
	PresentedAt      time.Time
}

// RecordIntervention canonicalizes and signs a new HumanIntervention,
// deriving response_time_ms from the gap between when the AI
// recommendation was presented and when the human responded.
func (s *Service) RecordIntervention(req RecordRequest) (domain.HumanIntervention, error) {
	if req.HumanRole == "" {
		return domain.HumanIntervention{}, errs.New(errs.KindValidation, "oversight: human_role is required")
	}
	if req.InterventionType == "" {
		return domain.HumanIntervention{}, errs.New(errs.KindValidation, "oversight: intervention_type is required")
	}

	suffix, err := randomHex8()
	if err != nil {
		return domain.HumanIntervention{}, errs.Wrap(errs.KindValidation, "oversight: generate intervention id", err)
	}

	intervention := domain.HumanIntervention{
		InterventionID:   "ivn_" + suffix,
		Timestamp:        time.Now().UTC(),
		InterventionType: req.InterventionType,
		AIRecommendation: req.AIRecommendation,
		AIConfidence:     req.AIConfidence,
		HumanDecision:    req.HumanDecision,
		HumanRole:        req.HumanRole,
		Reason:           req.Reason,
		RequestContext:   req.RequestContext,
	}

	if !req.PresentedAt.IsZero() && !req.RespondedAt.IsZero() {
		ms := req.RespondedAt.Sub(req.PresentedAt).Milliseconds()
		intervention.ResponseTimeMS = &ms
	}

	if s.signer != nil {
		sig, err := s.signer.Sign(intervention.HashPreimage())
		if err != nil {
			return domain.HumanIntervention{}, errs.Wrap(errs.KindSigning, "oversight: sign intervention", err)
		}
		intervention.Signature = sig
	}

	if err := s.store.Put(intervention); err != nil {
		return domain.HumanIntervention{}, err
	}
	return intervention, nil
}

// VerifyIntervention recomputes the canonical preimage and verifies
// its signature against the signer's own key.
func (s *Service) VerifyIntervention(i domain.HumanIntervention) (bool, error) {
	if i.Signature == "" {
		return false, nil
	}
	if s.signer == nil {
		return false, errs.New(errs.KindValidation, "oversight: no signer configured to verify")
	}
	return s.signer.VerifyWithOwnKey(i.HashPreimage(), i.Signature)
}

// overrideTypes are intervention_type values counted as an override of
// the AI recommendation rather than an approval of it.
var overrideTypes = map[string]bool{
	"override": true,
	"reject":   true,
	"reverse":  true,
}

// EffectivenessReport summarizes human oversight quality over a
// window (spec §4.12).
type EffectivenessReport struct {
	WindowStart        time.Time `json:"window_start"`
	WindowEnd          time.Time `json:"window_end"`
	TotalInterventions int       `json:"total_interventions"`
	Overrides          int       `json:"overrides"`
	Approvals          int       `json:"approvals"`
	OverrideRate       float64   `json:"override_rate"`
	OverrideRateBand   string    `json:"override_rate_band"`
	MeanResponseMS     float64   `json:"mean_response_ms"`
	MinResponseMS      int64     `json:"min_response_ms"`
	MaxResponseMS      int64     `json:"max_response_ms"`
	VerificationRate   float64   `json:"verification_rate"`
}

// overrideRateBand interprets an override rate per spec §4.12
// "interpretation bands": very low rates suggest rubber-stamping, very
// high rates suggest the AI recommendation is rarely trustworthy.
func overrideRateBand(rate float64) string {
	switch {
	case rate < 0.02:
		return "rubber_stamp_risk"
	case rate < 0.15:
		return "healthy"
	case rate < 0.40:
		return "elevated"
	default:
		return "ai_recommendation_unreliable"
	}
}

// GenerateEffectivenessReport summarizes interventions recorded in
// [start, end].
func (s *Service) GenerateEffectivenessReport(start, end time.Time) EffectivenessReport {
	interventions := s.store.InRange(start, end)

	report := EffectivenessReport{WindowStart: start, WindowEnd: end, TotalInterventions: len(interventions)}
	if len(interventions) == 0 {
		return report
	}

	var (
		responseTimes []int64
		verified      int
	)
	for _, iv := range interventions {
		if overrideTypes[iv.InterventionType] {
			report.Overrides++
		} else {
			report.Approvals++
		}
		if iv.ResponseTimeMS != nil {
			responseTimes = append(responseTimes, *iv.ResponseTimeMS)
		}
		if iv.Signature != "" {
			if ok, err := s.VerifyIntervention(iv); err == nil && ok {
				verified++
			}
		}
	}

	report.OverrideRate = float64(report.Overrides) / float64(report.TotalInterventions)
	report.OverrideRateBand = overrideRateBand(report.OverrideRate)
	report.VerificationRate = float64(verified) / float64(report.TotalInterventions)

	if len(responseTimes) > 0 {
		sort.Slice(responseTimes, func(i, j int) bool { return responseTimes[i] < responseTimes[j] })
		var sum int64
		for _, ms := range responseTimes {
			sum += ms
		}
		report.MeanResponseMS = float64(sum) / float64(len(responseTimes))
		report.MinResponseMS = responseTimes[0]
		report.MaxResponseMS = responseTimes[len(responseTimes)-1]
	}

	return report
}

// RoleChainStep is one rung of an escalation path simulation.
type RoleChainStep struct {
	Role              string        `json:"role"`
	MaxResponseWindow time.Duration `json:"max_response_window"`
}

// EscalationPathSimulation is the result of SimulateEscalationPath.
type EscalationPathSimulation struct {
	DecisionClass    string          `json:"decision_class"`
	RoleChain        []RoleChainStep `json:"role_chain"`
	CurrentRole      string          `json:"current_role"`
	IsRequiredApprover bool          `json:"is_required_approver"`
	MaxResponseWindow time.Duration  `json:"max_response_window"`
}

// decisionClassChains names, per decision class, the ordered role
// chain an escalation must climb and each rung's response window. The
// spec leaves the concrete role taxonomy to the implementer (as it
// does for C7's AUTHORIZED_ROLES); this mirrors that same default set.
var decisionClassChains = map[string][]RoleChainStep{
	"standard": {
		{Role: "on_call_engineer", MaxResponseWindow: 4 * time.Hour},
		{Role: "security_lead", MaxResponseWindow: 24 * time.Hour},
	},
	"high_risk": {
		{Role: "security_lead", MaxResponseWindow: 2 * time.Hour},
		{Role: "compliance_officer", MaxResponseWindow: 8 * time.Hour},
		{Role: "executive", MaxResponseWindow: 24 * time.Hour},
	},
	"critical": {
		{Role: "compliance_officer", MaxResponseWindow: time.Hour},
		{Role: "executive", MaxResponseWindow: 4 * time.Hour},
	},
}

// SimulateEscalationPath returns the full role chain for decisionClass
// and reports whether currentRole is the required approver at its
// rung (spec §4.12).
func (s *Service) SimulateEscalationPath(decisionClass, currentRole string) (EscalationPathSimulation, error) {
	chain, ok := decisionClassChains[decisionClass]
	if !ok {
		return EscalationPathSimulation{}, errs.New(errs.KindValidation, fmt.Sprintf("oversight: unknown decision class %q", decisionClass))
	}

	sim := EscalationPathSimulation{DecisionClass: decisionClass, RoleChain: chain, CurrentRole: currentRole}
	for _, step := range chain {
		if step.Role == currentRole {
			sim.IsRequiredApprover = true
			sim.MaxResponseWindow = step.MaxResponseWindow
			break
		}
	}
	if sim.MaxResponseWindow == 0 && len(chain) > 0 {
		sim.MaxResponseWindow = chain[len(chain)-1].MaxResponseWindow
	}
	return sim, nil
}

func randomHex8() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oversight: generate random suffix: %w", err)
	}
	return hex.EncodeToString(b), nil
}
