package lexecon

import (
	"context"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

// NotificationTransport delivers domain.Notification events to an
// external channel (Slack, pager, email). When supplied via
// WithNotificationTransport, Core forwards every notification the
// escalation service publishes; with no transport configured,
// notifications are only visible on the Core's Notifications() channel.
type NotificationTransport interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// EventHook receives a copy of every signed DecisionResponse the core
// produces. Multiple hooks may be registered via multiple
// WithEventHook calls; a hook's error is logged and does not fail the
// originating Decide call.
type EventHook interface {
	OnDecision(ctx context.Context, resp domain.DecisionResponse) error
}

// ExternalRiskScorer lets an operator override the built-in weighted
// dimensional scorer (internal/risk) with their own model, e.g. a
// learned risk classifier. When configured via WithExternalRiskScorer,
// Core.AssessRisk calls it instead of internal/risk.Service.Assess.
// The returned domain.Risk is passed to auto-escalation and returned to
// the caller; it is not written to the risk service's store.
type ExternalRiskScorer interface {
	Score(ctx context.Context, decisionID string, dims domain.RiskDimensions) (domain.Risk, error)
}
