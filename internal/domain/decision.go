package domain

import "time"

// Verdict is the outcome of a policy evaluation.
type Verdict string

const (
	VerdictPermit Verdict = "permit"
	VerdictDeny   Verdict = "deny"
)

// DecisionRequest is the input to Decide (spec §4.4, §6.1).
type DecisionRequest struct {
	ActorID     string    `json:"actor"`
	ActionID    string    `json:"action"`
	Tool        string    `json:"tool"`
	ResourceID  string    `json:"resource,omitempty"`
	UserIntent  string    `json:"user_intent"`
	RiskLevel   int       `json:"risk_level"` // [1,5]
	DataClasses []DataClass `json:"data_classes,omitempty"`
	Context     Context   `json:"context,omitempty"`
}

// CapabilityScope freezes the (actor, action, tool, data_classes) of
// the request a capability token was minted for.
type CapabilityScope struct {
	ActorID     string      `json:"actor"`
	ActionID    string      `json:"action"`
	Tool        string      `json:"tool"`
	DataClasses []DataClass `json:"data_classes,omitempty"`
}

// CapabilityToken is minted iff a decision permits.
type CapabilityToken struct {
	TokenID   string          `json:"token_id"`
	Scope     CapabilityScope `json:"scope"`
	GrantedAt time.Time       `json:"granted_at"`
	Expiry    time.Time       `json:"expiry"`
	Bearer    string          `json:"bearer,omitempty"` // EdDSA-signed JWT encoding of this token.
}

// DecisionResponse is the result of Decide (spec §3, §6.1).
type DecisionResponse struct {
	RequestID         string           `json:"request_id"`
	DecisionID        string           `json:"decision_id"`
	Decision          Verdict          `json:"decision"`
	Reasoning         string           `json:"reasoning"`
	PolicyVersionHash string           `json:"policy_version_hash"`
	CapabilityToken   *CapabilityToken `json:"capability_token,omitempty"`
	LedgerEntryHash   string           `json:"ledger_entry_hash,omitempty"`
	Signature         string           `json:"signature,omitempty"`
	Timestamp         time.Time        `json:"timestamp"`
}

// HashPreimage returns the fields hashed into decision_hash, the
// signing pre-image (spec §3: "decision_hash = SHA256(request_id ||
// decision || policy_version_hash || timestamp)").
func (d DecisionResponse) HashPreimage() map[string]any {
	return map[string]any{
		"request_id":          d.RequestID,
		"decision":            string(d.Decision),
		"policy_version_hash": d.PolicyVersionHash,
		"timestamp":           d.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}

// VerificationResult is the result of VerifyDecision.
type VerificationResult struct {
	Verified bool         `json:"verified"`
	Entry    *LedgerEntry `json:"entry,omitempty"`
}
