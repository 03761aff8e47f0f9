package domain

import "time"

// DecisionMaker names who or what actually decided.
type DecisionMaker string

const (
	DecisionMakerAISystem DecisionMaker = "AI_SYSTEM"
	DecisionMakerHuman    DecisionMaker = "HUMAN"
)

// ResponsibilityLevel captures the degree of accountability assigned.
type ResponsibilityLevel string

const (
	ResponsibilityFull    ResponsibilityLevel = "full"
	ResponsibilityShared  ResponsibilityLevel = "shared"
	ResponsibilityAdvisory ResponsibilityLevel = "advisory"
)

// ResponsibilityRecord tracks who is accountable for a decision (spec §4.9).
type ResponsibilityRecord struct {
	DecisionID          string              `json:"decision_id"`
	DecisionMaker       DecisionMaker       `json:"decision_maker"`
	ResponsibleParty    string              `json:"responsible_party"`
	Role                string              `json:"role"`
	Reasoning           string              `json:"reasoning"`
	Confidence          float64             `json:"confidence"`
	ResponsibilityLevel ResponsibilityLevel `json:"responsibility_level"`
	OverrideAI          *bool               `json:"override_ai,omitempty"`
	AIRecommendation    string              `json:"ai_recommendation,omitempty"`
	ReviewRequired      bool                `json:"review_required,omitempty"`
	ReviewedBy          string              `json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time          `json:"reviewed_at,omitempty"`
	LiabilityAccepted   *bool               `json:"liability_accepted,omitempty"`
	LiabilitySignature  string              `json:"liability_signature,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
}

// HumanIntervention is a signed record of a human judgment against an
// AI recommendation (spec §3, §4.12).
type HumanIntervention struct {
	InterventionID   string         `json:"intervention_id"`
	Timestamp        time.Time      `json:"timestamp"`
	InterventionType string         `json:"intervention_type"`
	AIRecommendation map[string]any `json:"ai_recommendation"`
	AIConfidence     float64        `json:"ai_confidence"`
	HumanDecision    map[string]any `json:"human_decision"`
	HumanRole        string         `json:"human_role"`
	Reason           string         `json:"reason"`
	RequestContext   map[string]any `json:"request_context"`
	Signature        string         `json:"signature,omitempty"`
	ResponseTimeMS   *int64         `json:"response_time_ms,omitempty"`
}

// HashPreimage returns the fields a HumanIntervention is canonicalized
// and signed over: everything except the signature itself.
func (h HumanIntervention) HashPreimage() map[string]any {
	return map[string]any{
		"intervention_id":   h.InterventionID,
		"timestamp":         h.Timestamp.UTC().Format(time.RFC3339Nano),
		"intervention_type": h.InterventionType,
		"ai_recommendation": h.AIRecommendation,
		"ai_confidence":     h.AIConfidence,
		"human_decision":    h.HumanDecision,
		"human_role":        h.HumanRole,
		"reason":            h.Reason,
		"request_context":   h.RequestContext,
	}
}
