package domain

import "time"

// ArtifactType names the category of evidence artifact (spec §4.8).
type ArtifactType string

const (
	ArtifactDecisionLog     ArtifactType = "decision_log"
	ArtifactPolicySnapshot  ArtifactType = "policy_snapshot"
	ArtifactAttestation     ArtifactType = "attestation"
	ArtifactAuditTrail      ArtifactType = "audit_trail"
	ArtifactExternalReport  ArtifactType = "external_report"
	ArtifactSignature       ArtifactType = "signature"
	ArtifactScreenshot      ArtifactType = "screenshot"
	ArtifactContextCapture  ArtifactType = "context_capture"
)

// DefaultRetentionFor returns the spec-mandated default retention
// window for an artifact type (spec §4.8).
func DefaultRetentionFor(t ArtifactType) time.Duration {
	const year = 365 * 24 * time.Hour
	switch t {
	case ArtifactSignature:
		return 10 * year
	case ArtifactScreenshot, ArtifactContextCapture:
		return 1 * year
	default:
		return 7 * year
	}
}

// MaxArtifactContentBytes bounds the size of stored artifact content
// (spec §4.8, 100 MB).
const MaxArtifactContentBytes = 100 * 1024 * 1024

// DigitalSignature is attached to an artifact at most once.
type DigitalSignature struct {
	SignerID  string    `json:"signer_id"`
	Signature string    `json:"signature"`
	Algorithm string    `json:"algorithm"`
	SignedAt  time.Time `json:"signed_at"`
}

// EvidenceArtifact is an immutable, content-addressed record (spec §3).
type EvidenceArtifact struct {
	ArtifactID         string            `json:"artifact_id"`
	ArtifactType       ArtifactType      `json:"artifact_type"`
	SHA256Hash         string            `json:"sha256_hash"`
	SizeBytes          int64             `json:"size_bytes"`
	Source             string            `json:"source"`
	ContentType        string            `json:"content_type,omitempty"`
	StorageURI         string            `json:"storage_uri,omitempty"`
	RelatedDecisionIDs []string          `json:"related_decision_ids,omitempty"`
	RelatedControlIDs  []string          `json:"related_control_ids,omitempty"`
	DigitalSignature   *DigitalSignature `json:"digital_signature,omitempty"`
	RetentionUntil     time.Time         `json:"retention_until"`
	IsImmutable        bool              `json:"is_immutable"`
	CreatedAt          time.Time         `json:"created_at"`
}
