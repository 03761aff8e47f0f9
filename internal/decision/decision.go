// Package decision implements the Decision Service (C4): the
// orchestration layer that validates a request, evaluates it against
// the active policy, mints a capability token on permit, appends the
// decision to the ledger, signs it, and records responsibility.
//
// The validate-then-write-then-notify orchestration shape is grounded
// on akashi's internal/service/decisions/service.go (Trace), adapted
// from its embed/score/transactional-write pipeline to the spec's
// evaluate/mint/append/sign pipeline.
package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/ledger"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/policy"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/responsibility"
)

// Signer is the subset of identity.Signer the decision service needs.
type Signer interface {
	Sign(obj any) (string, error)
	MintCapabilityToken(req domain.DecisionRequest) (*domain.CapabilityToken, error)
}

// Service orchestrates C1-C3 and C9 to turn a DecisionRequest into a
// signed, ledgered DecisionResponse (spec §4.4).
type Service struct {
	policy *policy.Engine
	ledger *ledger.Ledger
	signer Signer
	resp   *responsibility.Tracker
}

// New constructs a decision Service. resp may be nil to skip
// responsibility recording (e.g. in isolated tests of this package).
func New(p *policy.Engine, l *ledger.Ledger, signer Signer, resp *responsibility.Tracker) *Service {
	return &Service{policy: p, ledger: l, signer: signer, resp: resp}
}

// Decide runs the full evaluate/mint/append/sign/record pipeline.
func (s *Service) Decide(ctx context.Context, req domain.DecisionRequest) (domain.DecisionResponse, error) {
	if err := validate(req); err != nil {
		return domain.DecisionResponse{}, err
	}

	requestID := "req_" + uuid.NewString()

	active, loaded := s.policy.Active()
	policyHash := ""
	if loaded {
		policyHash = active.PolicyHash
	}

	result := s.policy.Evaluate(policy.Request{
		ActorID:     req.ActorID,
		ActionID:    req.ActionID,
		Tool:        req.Tool,
		DataClasses: req.DataClasses,
		RiskLevel:   req.RiskLevel,
	})

	verdict := domain.VerdictDeny
	if result.Allowed {
		verdict = domain.VerdictPermit
	}

	resp := domain.DecisionResponse{
		RequestID:         requestID,
		DecisionID:        requestID, // overwritten below once minted
		Decision:          verdict,
		Reasoning:         result.Reason,
		PolicyVersionHash: policyHash,
		Timestamp:         time.Now().UTC(),
	}

	decisionID, err := domain.NewDecisionID()
	if err != nil {
		return domain.DecisionResponse{}, errs.Wrap(errs.KindValidation, "generate decision id", err)
	}
	resp.DecisionID = decisionID

	var token *domain.CapabilityToken
	if verdict == domain.VerdictPermit {
		token, err = s.signer.MintCapabilityToken(req)
		if err != nil {
			return domain.DecisionResponse{}, errs.Wrap(errs.KindSigning, "mint capability token", err)
		}
		resp.CapabilityToken = token
	}

	entry, err := s.ledger.Append(ctx, domain.EventDecision, map[string]any{
		"request_id":          requestID,
		"decision_id":         decisionID,
		"decision":            string(verdict),
		"actor":               req.ActorID,
		"action":              req.ActionID,
		"policy_version_hash": policyHash,
		"risk_level":          req.RiskLevel,
	})
	if err != nil {
		// Ledger-append failure is fatal: no decision is returned, no
		// token survives (spec §4.4 failure semantics).
		return domain.DecisionResponse{}, errs.Wrap(errs.KindPersistence, "append decision to ledger", err)
	}
	resp.LedgerEntryHash = entry.EntryHash

	if sig, sigErr := s.signer.Sign(resp.HashPreimage()); sigErr == nil {
		resp.Signature = sig
	}
	// Signing failure downgrades to an unsigned response; Signature
	// stays empty and is visible to callers, per spec §4.4.

	if s.resp != nil {
		confidence := 1.0
		if !result.Allowed {
			confidence = 0.0
		}
		_, _ = s.resp.Record(responsibility.RecordRequest{
			DecisionID:          decisionID,
			DecisionMaker:       domain.DecisionMakerAISystem,
			ResponsibleParty:    req.ActorID,
			Role:                "decision_engine",
			Reasoning:           result.Reason,
			Confidence:          confidence,
			ResponsibilityLevel: domain.ResponsibilityFull,
		})
	}

	return resp, nil
}

// validate checks the request against spec §4.4 step 1.
func validate(req domain.DecisionRequest) error {
	if req.ActorID == "" {
		return errs.New(errs.KindValidation, "decision: actor is required")
	}
	if req.ActionID == "" {
		return errs.New(errs.KindValidation, "decision: action is required")
	}
	if req.Tool == "" {
		return errs.New(errs.KindValidation, "decision: tool is required")
	}
	if req.UserIntent == "" {
		return errs.New(errs.KindValidation, "decision: user_intent is required")
	}
	if req.RiskLevel < 1 || req.RiskLevel > 5 {
		return errs.New(errs.KindValidation, fmt.Sprintf("decision: risk_level %d out of range [1,5]", req.RiskLevel))
	}
	for _, dc := range req.DataClasses {
		if !domain.ValidDataClass(dc) {
			return errs.New(errs.KindValidation, fmt.Sprintf("decision: invalid data class %q", dc))
		}
	}
	if len(req.Context) > 0 {
		preimage, err := canon.Marshal(req.Context)
		if err != nil {
			return errs.Wrap(errs.KindValidation, "decision: canonicalize context", err)
		}
		if err := domain.ValidateSize(preimage, domain.MaxContextBytes); err != nil {
			return errs.Wrap(errs.KindValidation, "decision: context too large", err)
		}
	}
	return nil
}
