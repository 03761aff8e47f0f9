package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func strictSearchDoc() Document {
	return Document{
		PolicyID: "pol_search_v1",
		Version:  "1.0.0",
		Mode:     domain.ModeStrict,
		Terms: []domain.Term{
			{ID: "act_ai_agent:model", Kind: domain.TermActor},
			{ID: "axn_execute:search", Kind: domain.TermAction},
			{ID: "axn_delete:records", Kind: domain.TermAction},
		},
		Relations: []domain.Relation{
			{Effect: domain.EffectPermits, SubjectID: "act_ai_agent:model", ActionID: "axn_execute:search"},
		},
	}
}

func TestLoadPolicy_ComputesHash(t *testing.T) {
	e := New()
	res, err := e.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)
	assert.NotEmpty(t, res.PolicyHash)
	assert.Equal(t, 3, res.TermsLoaded)
	assert.Equal(t, 1, res.RelationsLoaded)
}

func TestLoadPolicy_SameDocSameHash(t *testing.T) {
	e1, e2 := New(), New()
	r1, err := e1.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)
	r2, err := e2.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)
	assert.Equal(t, r1.PolicyHash, r2.PolicyHash)
}

func TestEvaluate_StrictPermits(t *testing.T) {
	e := New()
	_, err := e.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search"})
	assert.True(t, res.Allowed)
}

func TestEvaluate_StrictDeniesWithoutPermit(t *testing.T) {
	e := New()
	_, err := e.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_delete:records"})
	assert.False(t, res.Allowed)
}

func TestEvaluate_PermissiveDefaultsAllow(t *testing.T) {
	e := New()
	doc := strictSearchDoc()
	doc.Mode = domain.ModePermissive
	doc.Relations = nil
	_, err := e.LoadPolicy(doc)
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search"})
	assert.True(t, res.Allowed)
}

func TestEvaluate_ForbidsBeatsPermits(t *testing.T) {
	e := New()
	doc := strictSearchDoc()
	doc.Relations = append(doc.Relations, domain.Relation{
		Effect: domain.EffectForbids, SubjectID: "act_ai_agent:model", ActionID: "axn_execute:search",
	})
	_, err := e.LoadPolicy(doc)
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search"})
	assert.False(t, res.Allowed)
}

func TestEvaluate_Paranoid_RequiresSatisfied(t *testing.T) {
	e := New()
	doc := strictSearchDoc()
	doc.Mode = domain.ModeParanoid
	doc.Relations = append(doc.Relations, domain.Relation{
		Effect: domain.EffectRequires, SubjectID: "act_ai_agent:model", ActionID: "axn_execute:search",
		Conditions: map[string]string{"data_class": "public"},
	})
	_, err := e.LoadPolicy(doc)
	require.NoError(t, err)

	deny := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search"})
	assert.False(t, deny.Allowed, "requires clause unmet should deny")

	permit := e.Evaluate(Request{
		ActorID: "act_ai_agent:model", ActionID: "axn_execute:search",
		DataClasses: []domain.DataClass{"public"},
	})
	assert.True(t, permit.Allowed)
}

func TestEvaluate_Paranoid_RiskCeiling(t *testing.T) {
	e := New()
	doc := strictSearchDoc()
	doc.Mode = domain.ModeParanoid
	doc.RiskCeiling = 2
	_, err := e.LoadPolicy(doc)
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search", RiskLevel: 3})
	assert.False(t, res.Allowed)
}

func TestEvaluate_TermMiss(t *testing.T) {
	e := New()
	_, err := e.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)

	res := e.Evaluate(Request{ActorID: "act_ai_agent:unknown", ActionID: "axn_execute:search"})
	assert.False(t, res.Allowed)
}

func TestEvaluate_PureFunctionOfPolicyAndRequest(t *testing.T) {
	e := New()
	_, err := e.LoadPolicy(strictSearchDoc())
	require.NoError(t, err)

	req := Request{ActorID: "act_ai_agent:model", ActionID: "axn_execute:search"}
	r1 := e.Evaluate(req)
	r2 := e.Evaluate(req)
	assert.Equal(t, r1, r2)
}
