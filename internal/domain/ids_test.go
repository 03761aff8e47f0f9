package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidActorID(t *testing.T) {
	assert.True(t, ValidActorID("act_ai_agent:model"))
	assert.True(t, ValidActorID("act_human_user:jane.doe"))
	assert.False(t, ValidActorID("act_robot:model"))
	assert.False(t, ValidActorID("act_ai_agent:"))
}

func TestValidActionID(t *testing.T) {
	assert.True(t, ValidActionID("axn_execute:search"))
	assert.False(t, ValidActionID("axn_jump:search"))
}

func TestNewDecisionID(t *testing.T) {
	id, err := NewDecisionID()
	require.NoError(t, err)
	assert.True(t, ValidDecisionID(id), "expected %q to match decision id pattern", id)

	id2, err := NewDecisionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestRiskIDFor(t *testing.T) {
	id, err := NewDecisionID()
	require.NoError(t, err)
	risk := RiskIDFor(id)
	assert.True(t, ValidRiskID(risk))
	assert.Equal(t, "rsk_dec_"+id[len("dec_"):], risk)
}

func TestNewEscalationID(t *testing.T) {
	decID, err := NewDecisionID()
	require.NoError(t, err)
	escID, err := NewEscalationID(decID)
	require.NoError(t, err)
	assert.True(t, ValidEscalationID(escID))

	esc2, err := NewEscalationID(decID)
	require.NoError(t, err)
	assert.NotEqual(t, escID, esc2, "re-escalation must yield a distinct id")
}

func TestNewEvidenceID(t *testing.T) {
	id, err := NewEvidenceID("Decision_Log")
	require.NoError(t, err)
	assert.True(t, ValidEvidenceID(id))
	assert.Regexp(t, `^evd_decisionlog_[0-9a-f]{8}$`, id)
}
