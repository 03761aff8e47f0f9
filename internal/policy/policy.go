// Package policy implements the Policy Engine (C3): atomic policy
// loading with hash-pinning, and Term/Relation evaluation across the
// three governance modes (spec §4.3).
//
// Rule-priority evaluation and the deny-wins/most-specific tie-break
// are grounded on invarity-go's internal/policy/evaluator.go, adapted
// from invarity's rule-effect model (allow/deny/escalate) to the
// spec's Term/Relation model (permits/forbids/requires).
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Document is the input to LoadPolicy: the raw terms/relations/mode a
// caller wants to become the active policy.
type Document struct {
	PolicyID    string
	Version     string
	Mode        domain.PolicyMode
	Terms       []domain.Term
	Relations   []domain.Relation
	RiskCeiling int
}

// LoadResult summarizes a successful LoadPolicy call.
type LoadResult struct {
	PolicyHash      string `json:"policy_hash"`
	TermsLoaded     int    `json:"terms_loaded"`
	RelationsLoaded int    `json:"relations_loaded"`
}

// Result is the outcome of Evaluate.
type Result struct {
	Allowed bool
	Reason  string
}

// Engine holds the active policy, swapped atomically on reload
// (copy-on-write per spec §5: "new terms/relations table swapped
// atomically; in-flight evaluations complete against their captured
// version").
type Engine struct {
	mu     sync.RWMutex
	active *domain.Policy
}

// New constructs an Engine with no policy loaded.
func New() *Engine {
	return &Engine{}
}

// LoadPolicy replaces the active terms/relations atomically and
// recomputes policy_hash.
func (e *Engine) LoadPolicy(doc Document) (LoadResult, error) {
	if doc.Mode != domain.ModePermissive && doc.Mode != domain.ModeStrict && doc.Mode != domain.ModeParanoid {
		return LoadResult{}, errs.New(errs.KindValidation, fmt.Sprintf("policy: invalid mode %q", doc.Mode))
	}

	policy := &domain.Policy{
		PolicyID:    doc.PolicyID,
		Version:     doc.Version,
		Mode:        doc.Mode,
		Terms:       doc.Terms,
		Relations:   doc.Relations,
		RiskCeiling: doc.RiskCeiling,
		LoadedAt:    time.Now().UTC(),
	}

	hash, err := hashPolicy(*policy)
	if err != nil {
		return LoadResult{}, errs.Wrap(errs.KindValidation, "hash policy", err)
	}
	policy.PolicyHash = hash

	e.mu.Lock()
	e.active = policy
	e.mu.Unlock()

	return LoadResult{
		PolicyHash:      hash,
		TermsLoaded:     len(doc.Terms),
		RelationsLoaded: len(doc.Relations),
	}, nil
}

// Active returns a snapshot of the currently loaded policy. The second
// return is false if no policy has been loaded yet.
func (e *Engine) Active() (domain.Policy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.active == nil {
		return domain.Policy{}, false
	}
	return *e.active, true
}

// Request is the input to Evaluate.
type Request struct {
	ActorID     string
	ActionID    string
	Tool        string
	DataClasses []domain.DataClass
	RiskLevel   int
}

// Evaluate runs the active policy against req, per the mode semantics
// and tie-break rules of spec §4.3.
func (e *Engine) Evaluate(req Request) Result {
	e.mu.RLock()
	active := e.active
	e.mu.RUnlock()

	if active == nil {
		return Result{Allowed: false, Reason: "policy: no policy loaded"}
	}

	actorChain := ancestorChain(active.Terms, req.ActorID)
	actionChain := ancestorChain(active.Terms, req.ActionID)
	if len(actorChain) == 0 {
		return Result{Allowed: false, Reason: fmt.Sprintf("policy: term miss for actor %q", req.ActorID)}
	}
	if len(actionChain) == 0 {
		return Result{Allowed: false, Reason: fmt.Sprintf("policy: term miss for action %q", req.ActionID)}
	}

	matches := matchingRelations(active.Relations, actorChain, actionChain)

	var forbid *domain.Relation
	if r, ok := mostSpecificOf(matches, domain.EffectForbids); ok {
		forbid = &r
	}
	var permit *domain.Relation
	if r, ok := mostSpecificOf(matches, domain.EffectPermits); ok {
		permit = &r
	}

	switch active.Mode {
	case domain.ModePermissive:
		if forbid != nil {
			return Result{Allowed: false, Reason: fmt.Sprintf("policy: forbids relation matched in permissive mode (%s -> %s)", forbid.SubjectID, forbid.ActionID)}
		}
		if permit != nil {
			return Result{Allowed: true, Reason: fmt.Sprintf("policy: permits relation matched in permissive mode (%s -> %s)", permit.SubjectID, permit.ActionID)}
		}
		return Result{Allowed: true, Reason: "policy: no forbids relation matched; permissive mode defaults to allow"}

	case domain.ModeStrict:
		if forbid != nil {
			return Result{Allowed: false, Reason: fmt.Sprintf("policy: forbids relation matched in strict mode (%s -> %s)", forbid.SubjectID, forbid.ActionID)}
		}
		if permit == nil {
			return Result{Allowed: false, Reason: "policy: no permits relation matched; strict mode requires an explicit permit"}
		}
		return Result{Allowed: true, Reason: fmt.Sprintf("policy: permits relation matched in strict mode (%s -> %s)", permit.SubjectID, permit.ActionID)}

	case domain.ModeParanoid:
		if forbid != nil {
			return Result{Allowed: false, Reason: fmt.Sprintf("policy: forbids relation matched in paranoid mode (%s -> %s)", forbid.SubjectID, forbid.ActionID)}
		}
		if permit == nil {
			return Result{Allowed: false, Reason: "policy: no permits relation matched; paranoid mode requires an explicit permit"}
		}
		requires := relationsWithEffect(matches, domain.EffectRequires)
		for _, r := range requires {
			if !requiresSatisfied(r, req) {
				return Result{Allowed: false, Reason: fmt.Sprintf("policy: unsatisfied requires condition on relation (%s -> %s)", r.SubjectID, r.ActionID)}
			}
		}
		if active.RiskCeiling > 0 && req.RiskLevel > active.RiskCeiling {
			return Result{Allowed: false, Reason: fmt.Sprintf("policy: risk_level %d exceeds paranoid mode ceiling %d", req.RiskLevel, active.RiskCeiling)}
		}
		return Result{Allowed: true, Reason: fmt.Sprintf("policy: permits relation matched and all requires satisfied in paranoid mode (%s -> %s)", permit.SubjectID, permit.ActionID)}
	}

	return Result{Allowed: false, Reason: "policy: unreachable mode"}
}

// ancestorChain returns termID plus every ancestor reached by walking
// ParentID (spec §4.3 step 2 "Ancestors follow the parent_actor_id /
// hierarchical action chain"). Returns nil if termID is unresolved.
func ancestorChain(terms []domain.Term, termID string) []string {
	byID := make(map[string]domain.Term, len(terms))
	for _, t := range terms {
		byID[t.ID] = t
	}
	t, ok := byID[termID]
	if !ok {
		return nil
	}
	chain := []string{termID}
	seen := map[string]bool{termID: true}
	for t.ParentID != "" && !seen[t.ParentID] {
		parent, ok := byID[t.ParentID]
		if !ok {
			break
		}
		chain = append(chain, parent.ID)
		seen[parent.ID] = true
		t = parent
	}
	return chain
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func matchingRelations(relations []domain.Relation, actorChain, actionChain []string) []domain.Relation {
	var out []domain.Relation
	for _, r := range relations {
		if contains(actorChain, r.SubjectID) && contains(actionChain, r.ActionID) {
			out = append(out, r)
		}
	}
	return out
}

func relationsWithEffect(relations []domain.Relation, effect domain.RelationEffect) []domain.Relation {
	var out []domain.Relation
	for _, r := range relations {
		if r.Effect == effect {
			out = append(out, r)
		}
	}
	return out
}

// mostSpecificOf returns the object-qualified relation of the given
// effect if one exists, else the first unqualified match (spec §4.3
// tie-break 4: "more-specific (object-qualified) relations beat
// less-specific").
func mostSpecificOf(relations []domain.Relation, effect domain.RelationEffect) (domain.Relation, bool) {
	var fallback *domain.Relation
	for _, r := range relations {
		if r.Effect != effect {
			continue
		}
		if r.IsObjectQualified() {
			return r, true
		}
		if fallback == nil {
			cp := r
			fallback = &cp
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return domain.Relation{}, false
}

// requiresSatisfied checks a "requires" relation's conditions against
// the request's data classes (spec §4.3 paranoid mode).
func requiresSatisfied(r domain.Relation, req Request) bool {
	wantClass, ok := r.Conditions["data_class"]
	if !ok {
		return true
	}
	for _, dc := range req.DataClasses {
		if string(dc) == wantClass {
			return true
		}
	}
	return false
}

func hashPolicy(p domain.Policy) (string, error) {
	preimage, err := canon.Marshal(p.CanonicalPayload())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(preimage)
	return hex.EncodeToString(sum[:]), nil
}
