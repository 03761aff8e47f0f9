package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

type fakeLedger struct {
	entries []domain.LedgerEntry
}

func (f *fakeLedger) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	return f.entries, nil
}

func (f *fakeLedger) VerifyIntegrity(ctx context.Context) (domain.IntegrityReport, error) {
	return domain.IntegrityReport{Valid: true, ChainIntact: true, EntriesChecked: len(f.entries), EntriesVerified: len(f.entries)}, nil
}

type fakePolicy struct {
	policy domain.Policy
	ok     bool
}

func (f *fakePolicy) Active() (domain.Policy, bool) { return f.policy, f.ok }

type fakeSigner struct{}

func (fakeSigner) Sign(obj any) (string, error) { return "sig_fake", nil }
func (fakeSigner) KeyID() string                { return "key_fake" }

func sampleEntries() []domain.LedgerEntry {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return []domain.LedgerEntry{
		{EntryID: "led_1", EventType: domain.EventDecision, Timestamp: now, EntryHash: "h1", PreviousHash: "0"},
		{EntryID: "led_2", EventType: domain.EventEscalation, Timestamp: now.Add(time.Hour), EntryHash: "h2", PreviousHash: "h1"},
		{EntryID: "led_3", EventType: domain.EventOverride, Timestamp: now.Add(48 * time.Hour), EntryHash: "h3", PreviousHash: "h2"},
	}
}

func TestGenerateExport_FiltersByScope(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, nil)

	pkg, err := s.GenerateExport(context.Background(), domain.ExportRequest{
		Scopes: []domain.ExportScope{domain.ScopeDecisions},
		Format: domain.FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pkg.RecordCount)
}

func TestGenerateExport_DateRangeExcludesOutOfWindow(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, nil)
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

	pkg, err := s.GenerateExport(context.Background(), domain.ExportRequest{
		Format:    domain.FormatJSON,
		StartDate: &start,
		EndDate:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pkg.RecordCount, "led_3 falls outside the window")
}

func TestGenerateExport_ChecksumAndSignature(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, fakeSigner{})

	pkg, err := s.GenerateExport(context.Background(), domain.ExportRequest{Format: domain.FormatJSON, Sign: true})
	require.NoError(t, err)
	assert.NotEmpty(t, pkg.Checksum)
	assert.Equal(t, "sig_fake", pkg.Signature)
	assert.Equal(t, "key_fake", pkg.SigningKeyID)
}

func TestGenerateExport_FrameworkCoverage(t *testing.T) {
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.LedgerEntry{
		{
			EntryID: "led_1", EventType: domain.EventEvidenceStored, Timestamp: now, EntryHash: "h1", PreviousHash: "0",
			Data: map[string]any{"related_control_ids": []string{"ctl_soc2_cc6.1", "ctl_hipaa_164.312"}},
		},
		{
			EntryID: "led_2", EventType: domain.EventEvidenceStored, Timestamp: now.Add(time.Hour), EntryHash: "h2", PreviousHash: "h1",
			// Round-tripped through JSON persistence: []any, not []string.
			Data: map[string]any{"control_ids": []any{"ctl_soc2_cc7.2"}},
		},
		{
			EntryID: "led_3", EventType: domain.EventDecision, Timestamp: now.Add(2 * time.Hour), EntryHash: "h3", PreviousHash: "h2",
			Data: map[string]any{},
		},
	}
	s := New(&fakeLedger{entries: entries}, &fakePolicy{}, nil)

	pkg, err := s.GenerateExport(context.Background(), domain.ExportRequest{Format: domain.FormatJSON})
	require.NoError(t, err)
	assert.Equal(t, 2, pkg.FrameworkCoverage["soc2"])
	assert.Equal(t, 1, pkg.FrameworkCoverage["hipaa"])
}

func TestGenerateExport_UnsupportedFormat(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, nil)
	_, err := s.GenerateExport(context.Background(), domain.ExportRequest{Format: "yaml"})
	assert.Error(t, err)
}

func TestGenerateExport_EachFormatRenders(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, nil)
	for _, format := range []domain.ExportFormat{domain.FormatCSV, domain.FormatMarkdown, domain.FormatHTML} {
		pkg, err := s.GenerateExport(context.Background(), domain.ExportRequest{Format: format})
		require.NoError(t, err)
		assert.NotEmpty(t, pkg.Content)
	}
}

func TestGenerateBundle_ProducesManifestWithBundleHash(t *testing.T) {
	s := New(&fakeLedger{entries: sampleEntries()}, &fakePolicy{}, fakeSigner{})

	bundleBytes, err := s.GenerateBundle(context.Background(), true)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(bundleBytes), int64(len(bundleBytes)))
	require.NoError(t, err)

	names := map[string]bool{}
	var manifestFile *zip.File
	for _, f := range zr.File {
		names[f.Name] = true
		if f.Name == "manifest.json" {
			manifestFile = f
		}
	}
	for _, want := range []string{"ledger_events.json", "verification_report.json", "policies.json", "summary.md", "manifest.json"} {
		assert.True(t, names[want], "missing %s", want)
	}

	require.NotNil(t, manifestFile)
	rc, err := manifestFile.Open()
	require.NoError(t, err)
	defer rc.Close()

	var manifest domain.Manifest
	require.NoError(t, json.NewDecoder(rc).Decode(&manifest))
	assert.Len(t, manifest.Files, 4)
	assert.NotEmpty(t, manifest.BundleHash)
	assert.Equal(t, "sig_fake", manifest.Signature)
}
