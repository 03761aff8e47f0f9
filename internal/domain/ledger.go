package domain

import "time"

// GenesisPreviousHash is the previous_hash of the ledger's first entry:
// 64 ASCII zeroes, the width of a hex-encoded SHA-256 sum.
const GenesisPreviousHash = "0000000000000000000000000000000000000000000000000000000000000000"

// LedgerEventType names the kind of event a LedgerEntry records.
type LedgerEventType string

const (
	EventGenesis         LedgerEventType = "genesis"
	EventDecision        LedgerEventType = "decision"
	EventPolicyLoad      LedgerEventType = "policy_load"
	EventRiskAssessed    LedgerEventType = "risk_assessed"
	EventEscalation      LedgerEventType = "escalation"
	EventOverride        LedgerEventType = "override"
	EventEvidenceStored  LedgerEventType = "evidence_stored"
	EventArtifactSigned  LedgerEventType = "artifact_signed"
	EventExportGenerated LedgerEventType = "export_generated"
	EventLegalHold       LedgerEventType = "legal_hold"
)

// LedgerEntry is one hash-chained record (spec §3).
type LedgerEntry struct {
	EntryID      string          `json:"entry_id"`
	EventType    LedgerEventType `json:"event_type"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         map[string]any  `json:"data"`
	PreviousHash string          `json:"previous_hash"`
	EntryHash    string          `json:"entry_hash"`
}

// HashPreimage returns the content hashed to produce EntryHash: every
// field except EntryHash itself.
func (e LedgerEntry) HashPreimage() map[string]any {
	return map[string]any{
		"entry_id":      e.EntryID,
		"event_type":    string(e.EventType),
		"timestamp":     e.Timestamp.UTC().Format(time.RFC3339Nano),
		"data":          e.Data,
		"previous_hash": e.PreviousHash,
	}
}

// IntegrityReport is the result of Ledger.VerifyIntegrity.
type IntegrityReport struct {
	Valid          bool   `json:"valid"`
	ChainIntact    bool   `json:"chain_intact"`
	EntriesChecked int    `json:"entries_checked"`
	EntriesVerified int   `json:"entries_verified"`
	FirstBroken    string `json:"first_broken,omitempty"`
}
