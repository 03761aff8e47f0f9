package override

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func newDecisionID(t *testing.T) string {
	t.Helper()
	id, err := domain.NewDecisionID()
	require.NoError(t, err)
	return id
}

func baseReq(t *testing.T) CreateRequest {
	return CreateRequest{
		DecisionID:      newDecisionID(t),
		OverrideType:    domain.OverrideRiskAccepted,
		AuthorizedBy:    "usr_jane",
		AuthorizedRole:  "compliance_officer",
		Justification:   "risk accepted after security review completed on 2026-07-30",
		OriginalOutcome: domain.VerdictDeny,
		NewOutcome:      domain.VerdictPermit,
	}
}

func TestCreateOverride_RejectsUnauthorizedRole(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	req.AuthorizedRole = "intern"
	_, err := s.CreateOverride(req)
	assert.Error(t, err)
}

func TestCreateOverride_RejectsShortJustification(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	req.Justification = "looks ok"
	_, err := s.CreateOverride(req)
	assert.Error(t, err)
}

func TestCreateOverride_RejectsGenericPhrase(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	req.Justification = "Trust me" + strRepeat(" please", 3)
	_, err := s.CreateOverride(req)
	// Padded phrase no longer matches the generic set exactly, so this
	// should succeed; verifies the check is exact-phrase, not substring.
	require.NoError(t, err)

	req2 := baseReq(t)
	req2.Justification = "trust me"
	_, err = s.CreateOverride(req2)
	assert.Error(t, err)
}

func strRepeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}

func TestCreateOverride_ExecutiveOnlyRequiresExecutiveID(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	req.OverrideType = domain.OverrideEmergencyBypass
	req.AuthorizedRole = "executive"
	_, err := s.CreateOverride(req)
	assert.Error(t, err)

	req.ExecutiveID = "exec_001"
	o, err := s.CreateOverride(req)
	require.NoError(t, err)
	assert.True(t, o.Scope.IsOneTime)
}

func TestCreateOverride_TimeLimitedDefaultsAndBounds(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	req.OverrideType = domain.OverrideTimeLimitedException
	o, err := s.CreateOverride(req)
	require.NoError(t, err)
	require.NotNil(t, o.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *o.ExpiresAt, time.Minute)

	tooFar := time.Now().Add(100 * 24 * time.Hour)
	req2 := baseReq(t)
	req2.OverrideType = domain.OverrideTimeLimitedException
	req2.ExpiresAt = &tooFar
	_, err = s.CreateOverride(req2)
	assert.Error(t, err)
}

func TestGetActiveOverride_IgnoresExpired(t *testing.T) {
	s := New(NewMemStore())
	decID := newDecisionID(t)
	past := time.Now().Add(-time.Hour)

	req := baseReq(t)
	req.DecisionID = decID
	req.OverrideType = domain.OverrideTimeLimitedException
	req.ExpiresAt = &past
	_, err := s.CreateOverride(req)
	require.Error(t, err) // expires_at must be in the future at creation

	_, ok := s.GetActiveOverride(decID)
	assert.False(t, ok)
}

func TestGetDecisionWithOverrideStatus_DoesNotMutateOriginal(t *testing.T) {
	s := New(NewMemStore())
	req := baseReq(t)
	o, err := s.CreateOverride(req)
	require.NoError(t, err)

	original := domain.DecisionResponse{DecisionID: req.DecisionID, Decision: domain.VerdictDeny}
	result := s.GetDecisionWithOverrideStatus(req.DecisionID, original)

	assert.Equal(t, domain.VerdictDeny, original.Decision, "original must be unmutated")
	assert.True(t, result.OverrideStatus.IsOverridden)
	assert.Equal(t, o.OverrideID, result.OverrideStatus.OverrideID)
	assert.Equal(t, domain.VerdictPermit, result.OverrideStatus.NewOutcome)
}
