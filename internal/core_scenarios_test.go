package lexecon_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lexecon "github.com/Lexicoding-systems/Lexecon-sub000"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/config"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/evidence"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/override"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/policy"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/risk"
)

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func newTestCore(t *testing.T) *lexecon.Core {
	t.Helper()
	cfg := config.Config{
		LedgerPath:                 filepath.Join(t.TempDir(), "ledger.db"),
		CapabilityTokenTTL:         15 * time.Minute,
		DefaultEscalationRecipient: []string{"oncall@example.com"},
		SLASweepInterval:           time.Hour,
		RetentionSweepInterval:     time.Hour,
		DecisionConcurrency:        8,
	}
	core, err := lexecon.New(context.Background(), lexecon.WithConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { _ = core.Shutdown(context.Background()) })
	return core
}

func searchPolicy() policy.Document {
	return policy.Document{
		PolicyID: "pol_search",
		Version:  "v1",
		Mode:     domain.ModeStrict,
		Terms: []domain.Term{
			{ID: "act_ai_agent:model", Kind: domain.TermActor},
			{ID: "axn_execute:search", Kind: domain.TermAction},
		},
		Relations: []domain.Relation{
			{Effect: domain.EffectPermits, SubjectID: "act_ai_agent:model", ActionID: "axn_execute:search"},
		},
	}
}

// S1 — Permit and verify.
func TestScenario_S1_PermitAndVerify(t *testing.T) {
	core := newTestCore(t)
	_, err := core.LoadPolicy(searchPolicy())
	require.NoError(t, err)

	resp, err := core.Decide(context.Background(), domain.DecisionRequest{
		ActorID:    "act_ai_agent:model",
		ActionID:   "axn_execute:search",
		Tool:       "web_search",
		UserIntent: "research",
		RiskLevel:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictPermit, resp.Decision)
	require.NotNil(t, resp.CapabilityToken)
	assert.Equal(t, "axn_execute:search", resp.CapabilityToken.Scope.ActionID)
	assert.NotEmpty(t, resp.LedgerEntryHash)
	assert.NotEmpty(t, resp.Signature)

	result, err := core.VerifyDecision(context.Background(), resp.LedgerEntryHash)
	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.NotNil(t, result.Entry)
	assert.Equal(t, resp.LedgerEntryHash, result.Entry.EntryHash)
}

// S2 — Deny under strict mode.
func TestScenario_S2_DenyUnderStrictMode(t *testing.T) {
	core := newTestCore(t)
	_, err := core.LoadPolicy(searchPolicy())
	require.NoError(t, err)

	resp, err := core.Decide(context.Background(), domain.DecisionRequest{
		ActorID:    "act_ai_agent:model",
		ActionID:   "axn_delete:records",
		Tool:       "record_store",
		UserIntent: "cleanup",
		RiskLevel:  1,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictDeny, resp.Decision)
	assert.Nil(t, resp.CapabilityToken)
	assert.NotEmpty(t, resp.LedgerEntryHash)

	report, err := core.VerifyLedgerIntegrity(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func intPtr(v int) *int { return &v }

// S3 — Auto-escalate on critical risk.
func TestScenario_S3_AutoEscalateOnCriticalRisk(t *testing.T) {
	core := newTestCore(t)
	_, err := core.LoadPolicy(searchPolicy())
	require.NoError(t, err)

	resp, err := core.Decide(context.Background(), domain.DecisionRequest{
		ActorID:    "act_ai_agent:model",
		ActionID:   "axn_execute:search",
		Tool:       "web_search",
		UserIntent: "research",
		RiskLevel:  1,
	})
	require.NoError(t, err)

	notifications := core.Notifications()

	result, err := core.AssessRisk(context.Background(), risk.AssessRequest{
		DecisionID: resp.DecisionID,
		Dimensions: domain.RiskDimensions{
			Security:   intPtr(95),
			Privacy:    intPtr(90),
			Compliance: intPtr(100),
		},
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.OverallScore, 85)
	assert.Equal(t, domain.RiskCritical, result.RiskLevel)

	select {
	case n := <-notifications:
		assert.Equal(t, domain.PriorityCritical, n.Priority)
	case <-time.After(time.Second):
		t.Fatal("expected an escalation_created notification")
	}
}

// S4 — Override preserves original decision.
func TestScenario_S4_OverridePreservesOriginalDecision(t *testing.T) {
	core := newTestCore(t)
	_, err := core.LoadPolicy(searchPolicy())
	require.NoError(t, err)

	denied, err := core.Decide(context.Background(), domain.DecisionRequest{
		ActorID:    "act_ai_agent:model",
		ActionID:   "axn_delete:records",
		Tool:       "record_store",
		UserIntent: "cleanup",
		RiskLevel:  1,
	})
	require.NoError(t, err)
	require.Equal(t, domain.VerdictDeny, denied.Decision)

	_, err = core.CreateOverride(override.CreateRequest{
		DecisionID:      denied.DecisionID,
		OverrideType:    domain.OverrideExecutiveOverride,
		AuthorizedBy:    "usr_exec_1",
		AuthorizedRole:  "executive",
		ExecutiveID:     "usr_exec_1",
		Justification:   "Customer deadline requires immediate approval; risk mitigated by audit logging and limited duration.",
		OriginalOutcome: domain.VerdictDeny,
		NewOutcome:      domain.VerdictPermit,
	})
	require.NoError(t, err)

	withStatus := core.GetDecisionWithOverrideStatus(denied.DecisionID, denied)
	assert.Equal(t, domain.VerdictDeny, withStatus.Decision)
	assert.True(t, withStatus.OverrideStatus.IsOverridden)
	assert.Equal(t, domain.VerdictPermit, withStatus.OverrideStatus.NewOutcome)
}

// S5 — Evidence integrity.
func TestScenario_S5_EvidenceIntegrity(t *testing.T) {
	core := newTestCore(t)

	artifact, err := core.StoreEvidence(evidence.StoreRequest{
		ArtifactType: domain.ArtifactDecisionLog,
		Content:      []byte("payload-A"),
		Source:       "test",
	})
	require.NoError(t, err)

	ok, err := core.VerifyEvidenceIntegrity(artifact.ArtifactID, []byte("payload-A"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = core.VerifyEvidenceIntegrity(artifact.ArtifactID, []byte("payload-B"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, core.SignEvidence(artifact.ArtifactID))

	err = core.SignEvidence(artifact.ArtifactID)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindConflict, kind)
}

// S6 — Tamper-evidence of bundle.
func TestScenario_S6_TamperEvidenceOfBundle(t *testing.T) {
	core := newTestCore(t)
	_, err := core.LoadPolicy(searchPolicy())
	require.NoError(t, err)

	_, err = core.Decide(context.Background(), domain.DecisionRequest{
		ActorID:    "act_ai_agent:model",
		ActionID:   "axn_execute:search",
		Tool:       "web_search",
		UserIntent: "research",
		RiskLevel:  1,
	})
	require.NoError(t, err)

	pkg, err := core.GenerateExport(context.Background(), domain.ExportRequest{
		Scopes: []domain.ExportScope{domain.ScopeAll},
		Format: domain.FormatJSON,
	})
	require.NoError(t, err)
	require.NotEmpty(t, pkg.Checksum)

	tampered := append([]byte(nil), pkg.Content...)
	tampered[0] ^= 0xFF

	assert.NotEqual(t, pkg.Checksum, sha256Hex(tampered))
	assert.Equal(t, pkg.Checksum, sha256Hex(pkg.Content))
}
