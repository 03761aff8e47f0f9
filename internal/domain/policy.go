package domain

import "time"

// PolicyMode is the evaluation discipline a loaded policy runs under.
type PolicyMode string

const (
	ModePermissive PolicyMode = "permissive"
	ModeStrict     PolicyMode = "strict"
	ModeParanoid   PolicyMode = "paranoid"
)

// TermKind classifies a policy Term node.
type TermKind string

const (
	TermActor     TermKind = "actor"
	TermAction    TermKind = "action"
	TermResource  TermKind = "resource"
	TermDataClass TermKind = "data_class"
)

// Term is a named node a Relation's subject/object can reference,
// optionally chained to a parent for hierarchy-based ancestor matching
// (spec §4.3 "Ancestors follow the parent_actor_id / hierarchical
// action chain").
type Term struct {
	ID       string   `json:"id"`
	Kind     TermKind `json:"kind"`
	ParentID string   `json:"parent_id,omitempty"`
}

// RelationEffect is the verdict a matching Relation contributes.
type RelationEffect string

const (
	EffectPermits  RelationEffect = "permits"
	EffectForbids  RelationEffect = "forbids"
	EffectRequires RelationEffect = "requires"
)

// Relation ties a subject term to an action term, optionally scoped to
// an object term, with an effect and optional machine-checkable
// conditions (used by paranoid mode's "requires" clauses).
type Relation struct {
	Effect     RelationEffect    `json:"effect"`
	SubjectID  string            `json:"subject_id"`
	ActionID   string            `json:"action_id"`
	ObjectID   string            `json:"object_id,omitempty"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// IsObjectQualified reports whether the relation names an object term,
// which makes it more specific than an otherwise-matching relation
// without one (spec §4.3 tie-break rule 4).
func (r Relation) IsObjectQualified() bool { return r.ObjectID != "" }

// Policy is the ordered set of terms and relations loaded into the
// policy engine, plus the mode it evaluates under.
type Policy struct {
	PolicyID   string     `json:"policy_id"`
	Version    string     `json:"version"`
	Mode       PolicyMode `json:"mode"`
	Terms      []Term     `json:"terms"`
	Relations  []Relation `json:"relations"`
	RiskCeiling int       `json:"risk_ceiling,omitempty"` // paranoid mode only; 0 means unset.
	LoadedAt   time.Time  `json:"loaded_at"`
	PolicyHash string     `json:"policy_hash"`
}

// CanonicalPayload returns the subset of Policy hashed into PolicyHash:
// terms and relations only, per spec §3 ("SHA-256 of the canonicalized
// ... JSON of its terms and relations").
func (p Policy) CanonicalPayload() map[string]any {
	return map[string]any{
		"terms":     p.Terms,
		"relations": p.Relations,
	}
}
