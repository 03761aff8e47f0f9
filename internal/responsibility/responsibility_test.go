package responsibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func TestRecord_RequiresPartyAndDecision(t *testing.T) {
	tr := New(NewMemStore())
	_, err := tr.Record(RecordRequest{DecisionID: "dec_x"})
	assert.Error(t, err)
}

func TestRecord_OnePerDecision(t *testing.T) {
	tr := New(NewMemStore())
	_, err := tr.Record(RecordRequest{DecisionID: "dec_x", ResponsibleParty: "act_ai_agent:model"})
	require.NoError(t, err)

	_, err = tr.Record(RecordRequest{DecisionID: "dec_x", ResponsibleParty: "act_ai_agent:model"})
	assert.Error(t, err)
}

func TestMarkReviewed(t *testing.T) {
	tr := New(NewMemStore())
	_, err := tr.Record(RecordRequest{
		DecisionID:       "dec_x",
		ResponsibleParty: "act_ai_agent:model",
		ReviewRequired:   true,
	})
	require.NoError(t, err)

	assert.Len(t, tr.PendingReview(), 1)

	r, err := tr.MarkReviewed("dec_x", "usr_reviewer")
	require.NoError(t, err)
	assert.Equal(t, "usr_reviewer", r.ReviewedBy)
	assert.NotNil(t, r.ReviewedAt)
	assert.Empty(t, tr.PendingReview())
}

func TestMarkReviewed_NotFound(t *testing.T) {
	tr := New(NewMemStore())
	_, err := tr.MarkReviewed("dec_missing", "usr_reviewer")
	assert.Error(t, err)
}

func TestAIOverrides(t *testing.T) {
	tr := New(NewMemStore())
	yes := true
	_, err := tr.Record(RecordRequest{
		DecisionID:          "dec_x",
		ResponsibleParty:    "usr_human",
		OverrideAI:          &yes,
		ResponsibilityLevel: domain.ResponsibilityFull,
	})
	require.NoError(t, err)

	assert.Len(t, tr.AIOverrides(), 1)
}
