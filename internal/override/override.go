// Package override implements the Override Service (C7): append-only,
// authorized, justified records that change a decision's operative
// outcome without mutating the decision itself.
//
// The authorization/justification validation pattern is grounded on
// akashi's internal/conflicts/validator.go (valid-value-set maps,
// e.g. validCategories/validSeverities), generalized from relationship
// classification to override authorization; append-only per-decision
// indexing is grounded on akashi's internal/storage/conflicts.go.
package override

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

const (
	minJustificationLen      = 20
	defaultTimeLimitedExpiry = 24 * time.Hour
	maxTimeLimitedExpiry     = 90 * 24 * time.Hour
	defaultReviewWindow      = 30 * 24 * time.Hour
)

// AuthorizedRoles is the default set of roles permitted to author an
// override (spec §4.7 "AUTHORIZED_ROLES"). Operators may supply their
// own set via WithAuthorizedRoles.
var AuthorizedRoles = map[string]bool{
	"compliance_officer": true,
	"security_lead":      true,
	"executive":          true,
	"on_call_engineer":   true,
}

// genericJustificationPhrases are rejected even when long enough to
// pass the length check (spec §4.7 "rejects short generic phrases").
var genericJustificationPhrases = map[string]bool{
	"because i said so":    true,
	"looks fine":           true,
	"trust me":             true,
	"approved":             true,
	"n/a":                  true,
	"not applicable":       true,
	"business as usual":    true,
	"standard procedure":   true,
}

// AuditTrailRecorder emits an ATTESTATION evidence artifact for a new
// override, returning its artifact id.
type AuditTrailRecorder func(decisionID string, content []byte) (artifactID string, err error)

// Store persists Overrides, append-only per decision.
type Store interface {
	Put(o domain.Override) error
	ByDecision(decisionID string) []domain.Override
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu        sync.RWMutex
	byID      map[string]domain.Override
	byDecision map[string][]string
}

func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]domain.Override), byDecision: make(map[string][]string)}
}

func (m *MemStore) Put(o domain.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[o.OverrideID]; exists {
		return errs.New(errs.KindConflict, fmt.Sprintf("override: %s already exists", o.OverrideID))
	}
	m.byID[o.OverrideID] = o
	m.byDecision[o.DecisionID] = append(m.byDecision[o.DecisionID], o.OverrideID)
	return nil
}

func (m *MemStore) ByDecision(decisionID string) []domain.Override {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byDecision[decisionID]
	out := make([]domain.Override, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.byID[id])
	}
	return out
}

// Service authorizes, validates, and records overrides (spec §4.7).
type Service struct {
	store          Store
	authorizedRoles map[string]bool
	auditTrail     AuditTrailRecorder
}

// Option configures a Service at construction.
type Option func(*Service)

// WithAuthorizedRoles overrides the default role set.
func WithAuthorizedRoles(roles map[string]bool) Option {
	return func(s *Service) { s.authorizedRoles = roles }
}

// WithAuditTrail wires an AuditTrailRecorder so every override emits
// an ATTESTATION evidence artifact.
func WithAuditTrail(rec AuditTrailRecorder) Option {
	return func(s *Service) { s.auditTrail = rec }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, authorizedRoles: AuthorizedRoles}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the input to CreateOverride.
type CreateRequest struct {
	DecisionID      string
	OverrideType    domain.OverrideType
	AuthorizedBy    string
	AuthorizedRole  string
	ExecutiveID     string
	Justification   string
	OriginalOutcome domain.Verdict
	NewOutcome      domain.Verdict
	ExpiresAt       *time.Time
}

// CreateOverride validates authorization and justification, then
// appends a new Override.
func (s *Service) CreateOverride(req CreateRequest) (domain.Override, error) {
	if !domain.ValidDecisionID(req.DecisionID) {
		return domain.Override{}, errs.New(errs.KindValidation, fmt.Sprintf("override: invalid decision id %q", req.DecisionID))
	}
	if !s.authorizedRoles[req.AuthorizedRole] {
		return domain.Override{}, errs.New(errs.KindAuthorizationDenied, fmt.Sprintf("override: role %q is not authorized", req.AuthorizedRole))
	}
	if domain.ExecutiveOnlyTypes[req.OverrideType] && req.ExecutiveID == "" {
		return domain.Override{}, errs.New(errs.KindAuthorizationDenied, fmt.Sprintf("override: type %q requires an executive id", req.OverrideType))
	}
	if err := validateJustification(req.Justification); err != nil {
		return domain.Override{}, err
	}

	scope := domain.OverrideScope{}
	if req.OverrideType == domain.OverrideEmergencyBypass {
		scope.IsOneTime = true
	}

	expiresAt := req.ExpiresAt
	if req.OverrideType == domain.OverrideTimeLimitedException {
		now := time.Now().UTC()
		if expiresAt == nil {
			exp := now.Add(defaultTimeLimitedExpiry)
			expiresAt = &exp
		}
		if !expiresAt.After(now) {
			return domain.Override{}, errs.New(errs.KindValidation, "override: expires_at must be in the future")
		}
		if expiresAt.After(now.Add(maxTimeLimitedExpiry)) {
			return domain.Override{}, errs.New(errs.KindValidation, "override: expires_at exceeds the 90-day maximum")
		}
	}

	overrideID, err := domain.NewOverrideID(req.DecisionID)
	if err != nil {
		return domain.Override{}, errs.Wrap(errs.KindValidation, "generate override id", err)
	}

	now := time.Now().UTC()
	o := domain.Override{
		OverrideID:       overrideID,
		DecisionID:       req.DecisionID,
		OverrideType:     req.OverrideType,
		AuthorizedBy:     req.AuthorizedBy,
		ExecutiveID:      req.ExecutiveID,
		Justification:    req.Justification,
		OriginalOutcome:  req.OriginalOutcome,
		NewOutcome:       req.NewOutcome,
		Scope:            scope,
		ExpiresAt:        expiresAt,
		ReviewRequiredBy: now.Add(defaultReviewWindow),
		CreatedAt:        now,
	}

	if s.auditTrail != nil {
		if content, err := canon.Marshal(map[string]any{
			"override_id":   o.OverrideID,
			"override_type": string(o.OverrideType),
			"authorized_by": o.AuthorizedBy,
		}); err == nil {
			if artifactID, err := s.auditTrail(o.DecisionID, content); err == nil {
				o.EvidenceIDs = append(o.EvidenceIDs, artifactID)
			}
		}
	}

	if err := s.store.Put(o); err != nil {
		return domain.Override{}, err
	}
	return o, nil
}

// GetActiveOverride returns the most recently created override for a
// decision whose expiry (if any) is still in the future.
func (s *Service) GetActiveOverride(decisionID string) (domain.Override, bool) {
	overrides := s.store.ByDecision(decisionID)
	now := time.Now().UTC()
	var active *domain.Override
	for i := range overrides {
		o := overrides[i]
		if !o.IsActive(now) {
			continue
		}
		if active == nil || o.CreatedAt.After(active.CreatedAt) {
			cp := o
			active = &cp
		}
	}
	if active == nil {
		return domain.Override{}, false
	}
	return *active, true
}

// GetDecisionWithOverrideStatus returns a copy of original augmented
// with its override status; original is never mutated (spec §4.7).
func (s *Service) GetDecisionWithOverrideStatus(decisionID string, original domain.DecisionResponse) domain.DecisionWithOverrideStatus {
	result := domain.DecisionWithOverrideStatus{DecisionResponse: original}
	if active, ok := s.GetActiveOverride(decisionID); ok {
		result.OverrideStatus = domain.OverrideStatus{
			IsOverridden: true,
			OverrideID:   active.OverrideID,
			OverrideType: active.OverrideType,
			NewOutcome:   active.NewOutcome,
		}
	}
	return result
}

func validateJustification(j string) error {
	if len(j) < minJustificationLen {
		return errs.New(errs.KindValidation, fmt.Sprintf("override: justification must be at least %d characters", minJustificationLen))
	}
	if genericJustificationPhrases[strings.ToLower(strings.TrimSpace(j))] {
		return errs.New(errs.KindValidation, "override: justification is a generic, non-specific phrase")
	}
	return nil
}
