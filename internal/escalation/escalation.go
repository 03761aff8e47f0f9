// Package escalation implements the Escalation Service (C6): the
// pending/acknowledged/resolved/expired state machine, SLA deadlines,
// auto-escalation on risk, and a ticker-driven SLA sweeper.
//
// The status-lifecycle bookkeeping is grounded on akashi's
// internal/conflicts/scorer.go (open/acknowledged/resolved tracking);
// the sweeper's ticker loop is grounded on akashi's
// internal/service/trace buffer-flush goroutine, adapted from
// periodic flush-to-storage to periodic SLA evaluation.
package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// AuditTrailRecorder adapts evidence.Service (or any lookalike) to the
// narrow interface this package needs, so the two packages aren't
// directly coupled by type identity.
type AuditTrailRecorder func(artifactType domain.ArtifactType, content []byte, source string, decisionIDs []string) error

// Store persists Escalations.
type Store interface {
	Put(e domain.Escalation) error
	Get(escalationID string) (domain.Escalation, bool)
	Update(e domain.Escalation) error
	ByDecision(decisionID string) []domain.Escalation
	NonTerminal() []domain.Escalation
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	byID map[string]domain.Escalation
}

func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]domain.Escalation)}
}

func (m *MemStore) Put(e domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[e.EscalationID]; exists {
		return errs.New(errs.KindConflict, fmt.Sprintf("escalation: %s already exists", e.EscalationID))
	}
	m.byID[e.EscalationID] = e
	return nil
}

func (m *MemStore) Get(escalationID string) (domain.Escalation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[escalationID]
	return e, ok
}

func (m *MemStore) Update(e domain.Escalation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[e.EscalationID]; !exists {
		return errs.New(errs.KindNotFound, fmt.Sprintf("escalation: %s not found", e.EscalationID))
	}
	m.byID[e.EscalationID] = e
	return nil
}

func (m *MemStore) ByDecision(decisionID string) []domain.Escalation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Escalation
	for _, e := range m.byID {
		if e.DecisionID == decisionID {
			out = append(out, e)
		}
	}
	return out
}

func (m *MemStore) NonTerminal() []domain.Escalation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Escalation
	for _, e := range m.byID {
		if !e.Status.IsTerminal() {
			out = append(out, e)
		}
	}
	return out
}

// Service runs the escalation state machine (spec §4.6).
type Service struct {
	store             Store
	notifier          *Notifier
	auditTrail        AuditTrailRecorder
	defaultRecipients []string
	slaWarningWindow  time.Duration
}

// Option configures a Service at construction.
type Option func(*Service)

// WithAuditTrail wires an AuditTrailRecorder (typically evidence.Service)
// so every transition emits an AUDIT_TRAIL evidence artifact.
func WithAuditTrail(rec AuditTrailRecorder) Option {
	return func(s *Service) { s.auditTrail = rec }
}

// WithDefaultRecipients sets the operator-configured fallback
// escalation recipients (spec Open Question 1: no built-in default).
func WithDefaultRecipients(recipients []string) Option {
	return func(s *Service) { s.defaultRecipients = recipients }
}

// WithSLAWarningWindow sets how far ahead of the deadline
// check_sla_status emits sla_warning notifications.
func WithSLAWarningWindow(d time.Duration) Option {
	return func(s *Service) { s.slaWarningWindow = d }
}

// New constructs a Service backed by store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, notifier: newNotifier(), slaWarningWindow: time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Notifications returns the channel external transports read
// Notification events from.
func (s *Service) Notifications() <-chan domain.Notification {
	return s.notifier.Subscribe()
}

// CreateRequest is the input to CreateEscalation.
type CreateRequest struct {
	DecisionID  string
	Trigger     string
	Priority    domain.EscalationPriority
	EscalatedTo []string
	Context     map[string]any
	Metadata    map[string]any
}

// inferredPriority maps a trigger to a priority when the caller omits
// one (spec §4.6).
func inferredPriority(trigger string) domain.EscalationPriority {
	switch trigger {
	case "risk_threshold":
		return domain.PriorityCritical
	case "policy_conflict", "anomaly_detected":
		return domain.PriorityHigh
	case "explicit_rule", "actor_request":
		return domain.PriorityMedium
	default:
		return domain.PriorityMedium
	}
}

// CreateEscalation opens a new pending escalation for a decision.
// Re-escalating the same decision is permitted and yields a new id.
func (s *Service) CreateEscalation(req CreateRequest) (domain.Escalation, error) {
	if len(req.EscalatedTo) == 0 {
		req.EscalatedTo = s.defaultRecipients
	}
	if len(req.EscalatedTo) == 0 {
		return domain.Escalation{}, errs.New(errs.KindValidation, "escalation: escalated_to is required and no default recipients are configured")
	}
	if !domain.ValidDecisionID(req.DecisionID) {
		return domain.Escalation{}, errs.New(errs.KindValidation, fmt.Sprintf("escalation: invalid decision id %q", req.DecisionID))
	}

	priority := req.Priority
	if priority == "" {
		priority = inferredPriority(req.Trigger)
	}

	escalationID, err := domain.NewEscalationID(req.DecisionID)
	if err != nil {
		return domain.Escalation{}, errs.Wrap(errs.KindValidation, "generate escalation id", err)
	}

	now := time.Now().UTC()
	e := domain.Escalation{
		EscalationID: escalationID,
		DecisionID:   req.DecisionID,
		Trigger:      req.Trigger,
		Status:       domain.EscalationPending,
		Priority:     priority,
		EscalatedTo:  req.EscalatedTo,
		Context:      req.Context,
		Metadata:     req.Metadata,
		CreatedAt:    now,
		SLADeadline:  now.Add(domain.SLAHoursFor(priority)),
	}
	if err := s.store.Put(e); err != nil {
		return domain.Escalation{}, err
	}

	s.emitAuditTrail(e, "create_escalation")
	s.notifier.publish(domain.Notification{
		Subject:   fmt.Sprintf("escalation created: %s", e.EscalationID),
		Message:   fmt.Sprintf("decision %s escalated (%s)", e.DecisionID, e.Trigger),
		Priority:  priority,
		Timestamp: now,
		Metadata:  map[string]any{"escalation_id": e.EscalationID, "escalated_to": e.EscalatedTo},
	})
	return e, nil
}

// AutoEscalateForRisk triggers CreateEscalation iff risk crosses the
// spec's threshold (overall_score >= 80 or risk_level == critical).
func (s *Service) AutoEscalateForRisk(risk domain.Risk) (*domain.Escalation, error) {
	if risk.OverallScore < 80 && risk.RiskLevel != domain.RiskCritical {
		return nil, nil
	}
	e, err := s.CreateEscalation(CreateRequest{
		DecisionID: risk.DecisionID,
		Trigger:    "risk_threshold",
		Priority:   domain.PriorityCritical,
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// AcknowledgeEscalation transitions pending -> acknowledged.
func (s *Service) AcknowledgeEscalation(escalationID, actor string) (domain.Escalation, error) {
	e, ok := s.store.Get(escalationID)
	if !ok {
		return domain.Escalation{}, errs.New(errs.KindNotFound, fmt.Sprintf("escalation: %s not found", escalationID))
	}
	if e.Status != domain.EscalationPending {
		return domain.Escalation{}, errs.New(errs.KindValidation, fmt.Sprintf("escalation: cannot acknowledge from status %q", e.Status))
	}
	now := time.Now().UTC()
	e.Status = domain.EscalationAcknowledged
	e.AcknowledgedBy = actor
	e.AcknowledgedAt = &now
	if err := s.store.Update(e); err != nil {
		return domain.Escalation{}, err
	}
	s.emitAuditTrail(e, "acknowledge_escalation")
	return e, nil
}

// ResolveEscalation transitions pending/acknowledged -> resolved. The
// resolver must be in escalated_to or be the acknowledger (spec §4.6).
func (s *Service) ResolveEscalation(escalationID, actor string, outcome domain.EscalationOutcome, notes string) (domain.Escalation, error) {
	e, ok := s.store.Get(escalationID)
	if !ok {
		return domain.Escalation{}, errs.New(errs.KindNotFound, fmt.Sprintf("escalation: %s not found", escalationID))
	}
	if e.Status.IsTerminal() {
		return domain.Escalation{}, errs.New(errs.KindValidation, fmt.Sprintf("escalation: cannot resolve from terminal status %q", e.Status))
	}
	if !contains(e.EscalatedTo, actor) && e.AcknowledgedBy != actor {
		return domain.Escalation{}, errs.New(errs.KindAuthorizationDenied, fmt.Sprintf("escalation: %s is not authorized to resolve %s", actor, escalationID))
	}

	now := time.Now().UTC()
	e.Status = domain.EscalationResolved
	e.ResolvedBy = actor
	e.ResolvedAt = &now
	e.Resolution = &domain.EscalationResolution{Outcome: outcome, Notes: notes}
	if err := s.store.Update(e); err != nil {
		return domain.Escalation{}, err
	}
	s.emitAuditTrail(e, "resolve_escalation")
	return e, nil
}

// CheckSLAStatus scans non-terminal escalations, emitting sla_warning
// notifications (deduped to at most one per hour per escalation) and
// transitioning past-deadline escalations to expired with sla_exceeded
// (spec §4.6).
func (s *Service) CheckSLAStatus(_ context.Context) error {
	now := time.Now().UTC()
	for _, e := range s.store.NonTerminal() {
		if now.After(e.SLADeadline) {
			e.Status = domain.EscalationExpired
			if err := s.store.Update(e); err != nil {
				return err
			}
			s.emitAuditTrail(e, "sla_exceeded")
			s.notifier.publish(domain.Notification{
				Subject:   fmt.Sprintf("SLA exceeded: %s", e.EscalationID),
				Message:   fmt.Sprintf("decision %s escalation expired past its %s deadline", e.DecisionID, e.Priority),
				Priority:  e.Priority,
				Timestamp: now,
				Metadata:  map[string]any{"escalation_id": e.EscalationID},
			})
			continue
		}
		if now.Add(s.slaWarningWindow).Before(e.SLADeadline) {
			continue
		}
		if e.LastWarningAt != nil && now.Sub(*e.LastWarningAt) < time.Hour {
			continue
		}
		e.LastWarningAt = &now
		if err := s.store.Update(e); err != nil {
			return err
		}
		s.notifier.publish(domain.Notification{
			Subject:   fmt.Sprintf("SLA warning: %s", e.EscalationID),
			Message:   fmt.Sprintf("decision %s escalation approaching its %s deadline", e.DecisionID, e.Priority),
			Priority:  e.Priority,
			Timestamp: now,
			Metadata:  map[string]any{"escalation_id": e.EscalationID},
		})
	}
	return nil
}

// RunSweeper blocks, invoking CheckSLAStatus every interval, until ctx
// is canceled. Each CheckSLAStatus error is passed to onErr (when
// non-nil) and the sweep continues on the next tick; callers typically
// run this in a goroutine.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.CheckSLAStatus(ctx); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

func (s *Service) Get(escalationID string) (domain.Escalation, bool) { return s.store.Get(escalationID) }
func (s *Service) ByDecision(decisionID string) []domain.Escalation  { return s.store.ByDecision(decisionID) }

func (s *Service) emitAuditTrail(e domain.Escalation, action string) {
	if s.auditTrail == nil {
		return
	}
	content, err := canon.Marshal(map[string]any{
		"escalation_id": e.EscalationID,
		"action":        action,
		"status":        string(e.Status),
	})
	if err != nil {
		return
	}
	_ = s.auditTrail(domain.ArtifactAuditTrail, content, "escalation_service", []string{e.DecisionID})
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
