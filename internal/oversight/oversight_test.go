package oversight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/identity"
)

func newTestSigner(t *testing.T) *identity.Signer {
	t.Helper()
	s, err := identity.New("", "", time.Hour)
	require.NoError(t, err)
	return s
}

func TestRecordIntervention_SignsAndComputesResponseTime(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))
	presented := time.Now()
	responded := presented.Add(90 * time.Second)

	iv, err := s.RecordIntervention(RecordRequest{
		InterventionType: "approve",
		HumanRole:        "security_lead",
		AIRecommendation: map[string]any{"verdict": "deny"},
		HumanDecision:    map[string]any{"verdict": "deny"},
		PresentedAt:      presented,
		RespondedAt:      responded,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, iv.Signature)
	require.NotNil(t, iv.ResponseTimeMS)
	assert.Equal(t, int64(90_000), *iv.ResponseTimeMS)
}

func TestRecordIntervention_RequiresRoleAndType(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))
	_, err := s.RecordIntervention(RecordRequest{HumanRole: "security_lead"})
	assert.Error(t, err)

	_, err = s.RecordIntervention(RecordRequest{InterventionType: "approve"})
	assert.Error(t, err)
}

func TestVerifyIntervention_DetectsTamper(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))
	iv, err := s.RecordIntervention(RecordRequest{InterventionType: "override", HumanRole: "executive"})
	require.NoError(t, err)

	ok, err := s.VerifyIntervention(iv)
	require.NoError(t, err)
	assert.True(t, ok)

	iv.Reason = "tampered"
	ok, err = s.VerifyIntervention(iv)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateEffectivenessReport_ComputesRatesAndBands(t *testing.T) {
	store := NewMemStore()
	s := New(store, newTestSigner(t))

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 9; i++ {
		_, err := s.RecordIntervention(RecordRequest{
			InterventionType: "approve",
			HumanRole:        "on_call_engineer",
			PresentedAt:      base,
			RespondedAt:      base.Add(time.Duration(i+1) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.RecordIntervention(RecordRequest{
		InterventionType: "override",
		HumanRole:        "security_lead",
		PresentedAt:      base,
		RespondedAt:      base.Add(5 * time.Minute),
	})
	require.NoError(t, err)

	report := s.GenerateEffectivenessReport(base.Add(-time.Minute), time.Now().Add(time.Minute))
	assert.Equal(t, 10, report.TotalInterventions)
	assert.Equal(t, 1, report.Overrides)
	assert.Equal(t, 9, report.Approvals)
	assert.InDelta(t, 0.1, report.OverrideRate, 0.0001)
	assert.Equal(t, "healthy", report.OverrideRateBand)
	assert.Equal(t, float64(1), report.VerificationRate)
	assert.Greater(t, report.MaxResponseMS, report.MinResponseMS)
}

func TestGenerateEffectivenessReport_EmptyWindow(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))
	report := s.GenerateEffectivenessReport(time.Now().Add(-time.Hour), time.Now())
	assert.Equal(t, 0, report.TotalInterventions)
	assert.Equal(t, "", report.OverrideRateBand)
}

func TestSimulateEscalationPath_IdentifiesRequiredApprover(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))

	sim, err := s.SimulateEscalationPath("high_risk", "compliance_officer")
	require.NoError(t, err)
	assert.True(t, sim.IsRequiredApprover)
	assert.Len(t, sim.RoleChain, 3)
	assert.Equal(t, 8*time.Hour, sim.MaxResponseWindow)

	sim, err = s.SimulateEscalationPath("high_risk", "intern")
	require.NoError(t, err)
	assert.False(t, sim.IsRequiredApprover)
}

func TestSimulateEscalationPath_UnknownClass(t *testing.T) {
	s := New(NewMemStore(), newTestSigner(t))
	_, err := s.SimulateEscalationPath("nonexistent", "executive")
	assert.Error(t, err)
}
