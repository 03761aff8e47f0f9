package domain

import "time"

// OverrideType names the category of authorized override (spec §3, §4.7).
type OverrideType string

const (
	OverrideEmergencyBypass       OverrideType = "emergency_bypass"
	OverrideExecutiveOverride     OverrideType = "executive_override"
	OverrideTimeLimitedException  OverrideType = "time_limited_exception"
	OverrideRiskAccepted          OverrideType = "risk_accepted"
)

// ExecutiveOnlyTypes requires its authorizer to additionally carry an
// executive id (spec §4.7 rule 1).
var ExecutiveOnlyTypes = map[OverrideType]bool{
	OverrideEmergencyBypass:   true,
	OverrideExecutiveOverride: true,
}

// OverrideScope carries type-specific qualifiers; IsOneTime is required
// true for emergency_bypass (spec §4.7 rule "must have scope.is_one_time = true").
type OverrideScope struct {
	IsOneTime bool `json:"is_one_time,omitempty"`
}

// Override is an immutable, append-only record that changes the
// operative outcome of a decision without mutating the decision itself.
type Override struct {
	OverrideID       string         `json:"override_id"`
	DecisionID       string         `json:"decision_id"`
	OverrideType     OverrideType   `json:"override_type"`
	AuthorizedBy     string         `json:"authorized_by"`
	ExecutiveID      string         `json:"executive_id,omitempty"`
	Justification    string         `json:"justification"`
	OriginalOutcome  Verdict        `json:"original_outcome"`
	NewOutcome       Verdict        `json:"new_outcome"`
	Scope            OverrideScope  `json:"scope,omitempty"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty"`
	ReviewRequiredBy time.Time      `json:"review_required_by"`
	EvidenceIDs      []string       `json:"evidence_ids,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// IsActive reports whether the override's expiry (if any) is in the future.
func (o Override) IsActive(now time.Time) bool {
	if o.ExpiresAt == nil {
		return true
	}
	return o.ExpiresAt.After(now)
}

// OverrideStatus augments a DecisionResponse for
// GetDecisionWithOverrideStatus without mutating the original.
type OverrideStatus struct {
	IsOverridden bool    `json:"is_overridden"`
	OverrideID   string  `json:"override_id,omitempty"`
	OverrideType OverrideType `json:"override_type,omitempty"`
	NewOutcome   Verdict `json:"new_outcome,omitempty"`
}

// DecisionWithOverrideStatus is the copy-augmented view returned by
// GetDecisionWithOverrideStatus; the original DecisionResponse is
// embedded and never mutated by the caller that produced this value.
type DecisionWithOverrideStatus struct {
	DecisionResponse
	OverrideStatus OverrideStatus `json:"override_status"`
}
