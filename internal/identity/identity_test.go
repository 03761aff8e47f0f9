package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := New("", "", time.Hour)
	require.NoError(t, err)
	return s
}

func TestSignVerify_RoundTrip(t *testing.T) {
	s := newTestSigner(t)
	obj := map[string]any{"request_id": "req_1", "decision": "permit"}

	sig, err := s.Sign(obj)
	require.NoError(t, err)

	ok, err := s.VerifyWithOwnKey(obj, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_RejectsMutatedPayload(t *testing.T) {
	s := newTestSigner(t)
	obj := map[string]any{"decision": "permit"}
	sig, err := s.Sign(obj)
	require.NoError(t, err)

	tampered := map[string]any{"decision": "deny"}
	ok, err := s.VerifyWithOwnKey(tampered, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	s1 := newTestSigner(t)
	s2 := newTestSigner(t)
	obj := map[string]any{"decision": "permit"}

	sig, err := s1.Sign(obj)
	require.NoError(t, err)

	ok, err := Verify(obj, sig, s2.PublicKey())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMintAndVerifyCapabilityToken(t *testing.T) {
	s := newTestSigner(t)
	req := domain.DecisionRequest{
		ActorID:  "act_ai_agent:model",
		ActionID: "axn_execute:search",
		Tool:     "web_search",
	}

	tok, err := s.MintCapabilityToken(req)
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Bearer)
	assert.True(t, tok.GrantedAt.Before(tok.Expiry))
	assert.LessOrEqual(t, tok.Expiry.Sub(tok.GrantedAt), time.Hour)

	verified, err := s.VerifyCapabilityToken(tok.Bearer)
	require.NoError(t, err)
	assert.Equal(t, req.ActionID, verified.Scope.ActionID)
}

func TestMintCapabilityToken_BoundedToOneHour(t *testing.T) {
	s, err := New("", "", 5*time.Hour)
	require.NoError(t, err)
	req := domain.DecisionRequest{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search", Tool: "x"}

	tok, err := s.MintCapabilityToken(req)
	require.NoError(t, err)
	assert.LessOrEqual(t, tok.Expiry.Sub(tok.GrantedAt), time.Hour)
}
