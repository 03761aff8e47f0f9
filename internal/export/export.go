// Package export implements Audit Export (C10): assembling ledger,
// policy, and verification records into a signed, checksummed export
// package, and packaging the same material into a ZIP bundle.
//
// The aggregate-query shape is grounded on akashi's
// internal/storage/audit.go (filtering and assembling audit records
// for a single response); multi-format rendering is grounded on
// invarity-cli/internal/cli/audit.go's JSON/human-readable report
// styles. The bundle's manifest hashing reuses the hex/sha256 handling
// from akashi's internal/integrity/integrity.go, though spec §6.3
// defines bundle_hash as a flat concatenated hash rather than a full
// Merkle root, so BuildMerkleRoot itself is not called here.
package export

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// LedgerSource is the subset of the ledger an export reads from.
type LedgerSource interface {
	Entries(ctx context.Context) ([]domain.LedgerEntry, error)
	VerifyIntegrity(ctx context.Context) (domain.IntegrityReport, error)
}

// PolicySource returns the currently active policy, if any.
type PolicySource interface {
	Active() (domain.Policy, bool)
}

// Signer signs an export's checksum or manifest.
type Signer interface {
	Sign(obj any) (string, error)
	KeyID() string
}

// Service assembles audit export packages and bundles (spec §4.10).
type Service struct {
	ledger LedgerSource
	policy PolicySource
	signer Signer
}

func New(ledger LedgerSource, policy PolicySource, signer Signer) *Service {
	return &Service{ledger: ledger, policy: policy, signer: signer}
}

// scopeEventTypes maps an ExportScope to the ledger event types it
// draws from. ScopeAll draws from every type.
var scopeEventTypes = map[domain.ExportScope][]domain.LedgerEventType{
	domain.ScopeDecisions:     {domain.EventDecision},
	domain.ScopeEscalations:   {domain.EventEscalation},
	domain.ScopeOverrides:     {domain.EventOverride},
	domain.ScopeEvidence:      {domain.EventEvidenceStored, domain.EventArtifactSigned},
	domain.ScopeInterventions: {domain.EventEscalation, domain.EventOverride},
}

// GenerateExport collects ledger entries within the requested scopes
// and date range, renders them in the requested format, and returns
// an ExportPackage carrying the content, its checksum, and an optional
// signature (spec §4.10, §6.1).
func (s *Service) GenerateExport(ctx context.Context, req domain.ExportRequest) (domain.ExportPackage, error) {
	entries, err := s.ledger.Entries(ctx)
	if err != nil {
		return domain.ExportPackage{}, errs.Wrap(errs.KindPersistence, "export: read ledger", err)
	}

	filtered := filterEntries(entries, req.Scopes, req.StartDate, req.EndDate)

	var (
		content     []byte
		contentType string
	)
	switch req.Format {
	case domain.FormatCSV:
		content = renderCSV(filtered)
		contentType = "text/csv"
	case domain.FormatMarkdown:
		content = renderMarkdown(filtered)
		contentType = "text/markdown"
	case domain.FormatHTML:
		content = renderHTML(filtered)
		contentType = "text/html"
	case domain.FormatJSON, "":
		content, err = canon.Marshal(filtered)
		if err != nil {
			return domain.ExportPackage{}, errs.Wrap(errs.KindIntegrity, "export: canonicalize content", err)
		}
		contentType = "application/json"
	default:
		return domain.ExportPackage{}, errs.New(errs.KindValidation, fmt.Sprintf("export: unsupported format %q", req.Format))
	}

	pkg := domain.ExportPackage{
		Content:           content,
		ContentType:       contentType,
		Checksum:          sha256Hex(content),
		SizeBytes:         len(content),
		RecordCount:       len(filtered),
		FrameworkCoverage: frameworkCoverage(filtered),
		GeneratedAt:       time.Now().UTC(),
	}

	if req.Sign && s.signer != nil {
		sig, err := s.signer.Sign(map[string]any{"checksum": pkg.Checksum, "record_count": pkg.RecordCount})
		if err != nil {
			return domain.ExportPackage{}, errs.Wrap(errs.KindSigning, "export: sign package", err)
		}
		pkg.Signature = sig
		pkg.SigningKeyID = s.signer.KeyID()
	}

	return pkg, nil
}

// filterEntries returns entries whose event type is covered by scopes
// (ScopeAll or an empty scopes list means every type) and whose
// timestamp falls within [start, end] where set.
func filterEntries(entries []domain.LedgerEntry, scopes []domain.ExportScope, start, end *time.Time) []domain.LedgerEntry {
	wantAll := len(scopes) == 0
	wanted := map[domain.LedgerEventType]bool{}
	for _, scope := range scopes {
		if scope == domain.ScopeAll {
			wantAll = true
			break
		}
		for _, t := range scopeEventTypes[scope] {
			wanted[t] = true
		}
	}

	out := make([]domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if !wantAll && !wanted[e.EventType] {
			continue
		}
		if start != nil && e.Timestamp.Before(*start) {
			continue
		}
		if end != nil && e.Timestamp.After(*end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// frameworkCoverage tallies, per compliance framework, how many
// exported entries reference at least one control in that framework
// (spec §4.10 step 3 "compute summary statistics: counts, framework
// coverage"). Control ids follow the ctl_<fw>_<local> scheme.
func frameworkCoverage(entries []domain.LedgerEntry) map[string]int {
	coverage := make(map[string]int)
	for _, e := range entries {
		seen := make(map[string]bool)
		for _, controlID := range controlIDsFromData(e.Data) {
			fw, ok := controlFramework(controlID)
			if !ok || seen[fw] {
				continue
			}
			seen[fw] = true
			coverage[fw]++
		}
	}
	if len(coverage) == 0 {
		return nil
	}
	return coverage
}

// controlIDsFromData extracts control ids from a ledger entry's data
// map, which may hold them as []string (entries built in-process) or
// []any (entries round-tripped through JSON persistence).
func controlIDsFromData(data map[string]any) []string {
	var out []string
	for _, key := range []string{"control_ids", "related_control_ids"} {
		switch v := data[key].(type) {
		case []string:
			out = append(out, v...)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

// controlFramework extracts the framework segment from a ctl_<fw>_<local>
// control id.
func controlFramework(controlID string) (string, bool) {
	if !domain.ValidControlID(controlID) {
		return "", false
	}
	parts := strings.SplitN(controlID, "_", 3)
	if len(parts) != 3 {
		return "", false
	}
	return parts[1], true
}

func renderCSV(entries []domain.LedgerEntry) []byte {
	var b strings.Builder
	b.WriteString("entry_id,event_type,timestamp,entry_hash,previous_hash\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s\n",
			e.EntryID, e.EventType, e.Timestamp.Format(time.RFC3339), e.EntryHash, e.PreviousHash)
	}
	return []byte(b.String())
}

func renderMarkdown(entries []domain.LedgerEntry) []byte {
	var b strings.Builder
	b.WriteString("# Audit Export\n\n")
	fmt.Fprintf(&b, "Records: %d\n\n", len(entries))
	b.WriteString("| Entry ID | Event Type | Timestamp | Entry Hash |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", e.EntryID, e.EventType, e.Timestamp.Format(time.RFC3339), e.EntryHash)
	}
	return []byte(b.String())
}

func renderHTML(entries []domain.LedgerEntry) []byte {
	var b strings.Builder
	b.WriteString("<html><body><table>\n")
	b.WriteString("<tr><th>Entry ID</th><th>Event Type</th><th>Timestamp</th><th>Entry Hash</th></tr>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			e.EntryID, e.EventType, e.Timestamp.Format(time.RFC3339), e.EntryHash)
	}
	b.WriteString("</table></body></html>\n")
	return []byte(b.String())
}

// BundleFile is one named file to include in a ZIP export bundle.
type BundleFile struct {
	Path    string
	Content []byte
}

// GenerateBundle assembles the five-file ZIP export bundle described
// in spec §6.3: ledger_events.json, verification_report.json,
// policies.json, summary.md, and a manifest.json whose bundle_hash is
// the SHA-256 of the concatenation of the other files' sorted hashes.
func (s *Service) GenerateBundle(ctx context.Context, sign bool) ([]byte, error) {
	entries, err := s.ledger.Entries(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "bundle: read ledger", err)
	}
	report, err := s.ledger.VerifyIntegrity(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "bundle: verify integrity", err)
	}

	ledgerJSON, err := canon.Marshal(entries)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntegrity, "bundle: marshal ledger events", err)
	}
	reportJSON, err := canon.Marshal(report)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntegrity, "bundle: marshal verification report", err)
	}

	var policies []domain.Policy
	if s.policy != nil {
		if p, ok := s.policy.Active(); ok {
			policies = append(policies, p)
		}
	}
	policiesJSON, err := canon.Marshal(policies)
	if err != nil {
		return nil, errs.Wrap(errs.KindIntegrity, "bundle: marshal policies", err)
	}

	summary := renderMarkdown(entries)

	files := []BundleFile{
		{Path: "ledger_events.json", Content: ledgerJSON},
		{Path: "verification_report.json", Content: reportJSON},
		{Path: "policies.json", Content: policiesJSON},
		{Path: "summary.md", Content: summary},
	}

	manifest := domain.Manifest{GeneratedAt: time.Now().UTC()}
	hashes := make([]string, 0, len(files))
	for _, f := range files {
		h := sha256Hex(f.Content)
		manifest.Files = append(manifest.Files, domain.ManifestFileEntry{Path: f.Path, SHA256: h})
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	manifest.BundleHash = sha256Hex([]byte(strings.Join(hashes, "")))

	if sign && s.signer != nil {
		sig, err := s.signer.Sign(map[string]any{"bundle_hash": manifest.BundleHash})
		if err != nil {
			return nil, errs.Wrap(errs.KindSigning, "bundle: sign manifest", err)
		}
		manifest.Signature = sig
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.KindIntegrity, "bundle: marshal manifest", err)
	}
	files = append(files, BundleFile{Path: "manifest.json", Content: manifestJSON})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Path)
		if err != nil {
			return nil, errs.Wrap(errs.KindPersistence, fmt.Sprintf("bundle: create zip entry %s", f.Path), err)
		}
		if _, err := w.Write(f.Content); err != nil {
			return nil, errs.Wrap(errs.KindPersistence, fmt.Sprintf("bundle: write zip entry %s", f.Path), err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "bundle: close zip writer", err)
	}

	return buf.Bytes(), nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
