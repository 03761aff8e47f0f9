package lexecon

import (
	"log/slog"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/config"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/policy"
)

// Option configures a Core.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	cfg                    *config.Config
	logger                 *slog.Logger
	version                string
	initialPolicy          *policy.Document
	authorizedOverrideRoles map[string]bool
	notificationTransport  NotificationTransport
	eventHooks             []EventHook
	externalRiskScorer     ExternalRiskScorer
}

// WithConfig supplies a pre-loaded Config instead of having New call
// config.Load() itself. Useful for tests that want an in-memory-only
// Core without environment variables.
func WithConfig(cfg config.Config) Option {
	return func(o *resolvedOptions) { o.cfg = &cfg }
}

// WithLogger sets the structured logger for the Core. If not set, the
// default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string that Core.Version reports and that
// is attached to the OpenTelemetry resource.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithInitialPolicy loads doc as the active policy during New, instead
// of requiring a separate LoadPolicy call before the first Decide.
func WithInitialPolicy(doc policy.Document) Option {
	return func(o *resolvedOptions) { o.initialPolicy = &doc }
}

// WithAuthorizedOverrideRoles replaces override.AuthorizedRoles' default
// set for this Core's override service.
func WithAuthorizedOverrideRoles(roles map[string]bool) Option {
	return func(o *resolvedOptions) { o.authorizedOverrideRoles = roles }
}

// WithNotificationTransport registers the transport escalation
// notifications are forwarded to. Without one, notifications are only
// observable via Core.Notifications().
func WithNotificationTransport(t NotificationTransport) Option {
	return func(o *resolvedOptions) { o.notificationTransport = t }
}

// WithEventHook registers a hook to receive every signed
// DecisionResponse. Multiple hooks may be registered.
func WithEventHook(hook EventHook) Option {
	return func(o *resolvedOptions) { o.eventHooks = append(o.eventHooks, hook) }
}

// WithExternalRiskScorer replaces the built-in weighted dimensional
// risk scorer for Core.AssessRisk.
func WithExternalRiskScorer(s ExternalRiskScorer) Option {
	return func(o *resolvedOptions) { o.externalRiskScorer = s }
}
