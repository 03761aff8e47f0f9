package domain

import "time"

// ExportFormat is the rendering requested for a GenerateExport call.
type ExportFormat string

const (
	FormatJSON     ExportFormat = "json"
	FormatCSV      ExportFormat = "csv"
	FormatMarkdown ExportFormat = "markdown"
	FormatHTML     ExportFormat = "html"
)

// ExportScope names the record categories to include.
type ExportScope string

const (
	ScopeAll          ExportScope = "all"
	ScopeDecisions    ExportScope = "decisions"
	ScopeEscalations  ExportScope = "escalations"
	ScopeOverrides    ExportScope = "overrides"
	ScopeEvidence     ExportScope = "evidence"
	ScopeInterventions ExportScope = "interventions"
)

// ExportRequest parameterizes GenerateExport (spec §4.10, §6.1).
type ExportRequest struct {
	Scopes    []ExportScope `json:"scopes"`
	Format    ExportFormat  `json:"format"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`
	Sign      bool          `json:"sign,omitempty"`
}

// ExportPackage is the result of GenerateExport.
type ExportPackage struct {
	Content           []byte         `json:"-"`
	ContentType       string         `json:"content_type"`
	Checksum          string         `json:"checksum"`
	SizeBytes         int            `json:"size_bytes"`
	RecordCount       int            `json:"record_count"`
	FrameworkCoverage map[string]int `json:"framework_coverage,omitempty"`
	Signature         string         `json:"signature,omitempty"`
	SigningKeyID      string         `json:"signing_key_id,omitempty"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

// ManifestFileEntry is one file's checksum inside an export bundle's
// manifest.json (spec §6.3).
type ManifestFileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// Manifest describes a ZIP export bundle's contents and overall hash.
type Manifest struct {
	Files       []ManifestFileEntry `json:"files"`
	BundleHash  string              `json:"bundle_hash"`
	Signature   string              `json:"signature,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
}
