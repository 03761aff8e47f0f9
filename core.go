// Package lexecon wires the twelve governance components (C1-C12) into
// a single Core: a runtime AI-action governance gateway that decides
// whether an agent's proposed action is permitted, records why, and
// keeps a tamper-evident trail of every decision, escalation, and
// override.
//
// Core.New follows akashi.go's New(opts ...Option) shape: load config,
// init telemetry, open the durable stores, construct each service in
// dependency order, and return a Core ready for Run. Core.Run starts
// the background sweepers (escalation SLA, notification forwarding,
// retention) and blocks until its context is canceled, then calls
// Shutdown.
package lexecon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/config"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/decision"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/escalation"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/evidence"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/export"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/identity"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/ledger"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/override"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/oversight"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/policy"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/responsibility"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/retention"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/risk"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/storage/postgres"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/telemetry"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/workerpool"
	"github.com/Lexicoding-systems/Lexecon-sub000/migrations"
)

// Core holds every governance component and the infrastructure they
// share (ledger store, pluggable durable store, signer, worker pool).
type Core struct {
	cfg     config.Config
	logger  *slog.Logger
	version string

	signer         *identity.Signer
	ledgerStore    *ledger.SQLiteStore
	ledger         *ledger.Ledger
	pgDB           *postgres.DB
	policyEngine   *policy.Engine
	riskSvc        *risk.Service
	decisionSvc    *decision.Service
	escalationSvc  *escalation.Service
	overrideSvc    *override.Service
	evidenceSvc    *evidence.Service
	responsibility *responsibility.Tracker
	retentionSvc   *retention.Service
	exportSvc      *export.Service
	oversightSvc   *oversight.Service
	pool           *workerpool.Pool

	notificationTransport NotificationTransport
	eventHooks            []EventHook
	externalRiskScorer    ExternalRiskScorer

	otelShutdown telemetry.Shutdown
	stopSweepers context.CancelFunc
}

// New constructs a Core. By default it loads configuration from the
// environment (LEXECON_*) and creates an in-memory store for every
// component except the ledger (always SQLite); LEXECON_POSTGRES_URL
// switches evidence/escalation/override/retention/responsibility to the
// Postgres pluggable store.
func New(ctx context.Context, opts ...Option) (*Core, error) {
	resolved := &resolvedOptions{
		logger:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
		version: "dev",
	}
	for _, opt := range opts {
		opt(resolved)
	}

	cfg := resolved.cfg
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("lexecon: load config: %w", err)
		}
		cfg = &loaded
	}

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, resolved.version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("lexecon: init telemetry: %w", err)
	}

	signer, err := identity.New(cfg.SigningPrivateKeyPath, cfg.SigningPublicKeyPath, cfg.CapabilityTokenTTL)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("lexecon: init signer: %w", err)
	}

	ledgerStore, err := ledger.OpenSQLiteStore(ctx, cfg.LedgerPath)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("lexecon: open ledger store: %w", err)
	}

	led, err := ledger.New(ctx, ledgerStore)
	if err != nil {
		_ = ledgerStore.Close()
		_ = otelShutdown(ctx)
		return nil, fmt.Errorf("lexecon: init ledger: %w", err)
	}

	var pgDB *postgres.DB
	var evidenceStore evidence.Store = evidence.NewMemStore()
	var escalationStore escalation.Store = escalation.NewMemStore()
	var overrideStore override.Store = override.NewMemStore()
	var retentionStore retention.HoldStore = retention.NewMemStore()
	var responsibilityStore responsibility.Store = responsibility.NewMemStore()

	if cfg.PostgresURL != "" {
		pgDB, err = postgres.New(ctx, cfg.PostgresURL, resolved.logger)
		if err != nil {
			_ = ledgerStore.Close()
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("lexecon: connect postgres store: %w", err)
		}
		if err := pgDB.RunMigrations(ctx, migrations.FS); err != nil {
			pgDB.Close()
			_ = ledgerStore.Close()
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("lexecon: run postgres migrations: %w", err)
		}
		evidenceStore = postgres.NewEvidenceStore(pgDB)
		escalationStore = postgres.NewEscalationStore(pgDB)
		overrideStore = postgres.NewOverrideStore(pgDB)
		retentionStore = postgres.NewRetentionStore(pgDB)
		// Responsibility records are the one non-ledger store spec §9
		// requires be durable, so they follow Postgres too whenever it's
		// configured rather than staying memory-only (contrast the other
		// four, which §9 allows to be volatile).
		responsibilityStore = postgres.NewResponsibilityStore(pgDB)
	}

	policyEngine := policy.New()
	if resolved.initialPolicy != nil {
		if _, err := policyEngine.LoadPolicy(*resolved.initialPolicy); err != nil {
			closeDurableStores(pgDB, ledgerStore)
			_ = otelShutdown(ctx)
			return nil, fmt.Errorf("lexecon: load initial policy: %w", err)
		}
	}

	responsibilityTracker := responsibility.New(responsibilityStore)
	riskSvc := risk.New(risk.NewMemStore())
	decisionSvc := decision.New(policyEngine, led, signer, responsibilityTracker)
	evidenceSvc := evidence.New(evidenceStore)

	escalationOpts := []escalation.Option{
		escalation.WithAuditTrail(evidenceAuditTrailForEscalation(evidenceSvc)),
	}
	if len(cfg.DefaultEscalationRecipient) > 0 {
		escalationOpts = append(escalationOpts, escalation.WithDefaultRecipients(cfg.DefaultEscalationRecipient))
	}
	escalationSvc := escalation.New(escalationStore, escalationOpts...)

	overrideOpts := []override.Option{
		override.WithAuditTrail(evidenceAuditTrailForOverride(evidenceSvc)),
	}
	if resolved.authorizedOverrideRoles != nil {
		overrideOpts = append(overrideOpts, override.WithAuthorizedRoles(resolved.authorizedOverrideRoles))
	}
	overrideSvc := override.New(overrideStore, overrideOpts...)

	retentionSvc := retention.NewWithStore(retentionStore)
	exportSvc := export.New(led, policyEngine, signer)
	oversightSvc := oversight.New(oversight.NewMemStore(), signer)

	pool := workerpool.New(cfg.DecisionConcurrency)

	c := &Core{
		cfg:                   *cfg,
		logger:                resolved.logger,
		version:               resolved.version,
		signer:                signer,
		ledgerStore:           ledgerStore,
		ledger:                led,
		pgDB:                  pgDB,
		policyEngine:          policyEngine,
		riskSvc:               riskSvc,
		decisionSvc:           decisionSvc,
		escalationSvc:         escalationSvc,
		overrideSvc:           overrideSvc,
		evidenceSvc:           evidenceSvc,
		responsibility:        responsibilityTracker,
		retentionSvc:          retentionSvc,
		exportSvc:             exportSvc,
		oversightSvc:          oversightSvc,
		pool:                  pool,
		notificationTransport: resolved.notificationTransport,
		eventHooks:            resolved.eventHooks,
		externalRiskScorer:    resolved.externalRiskScorer,
		otelShutdown:          otelShutdown,
	}
	return c, nil
}

func closeDurableStores(pgDB *postgres.DB, ledgerStore *ledger.SQLiteStore) {
	if pgDB != nil {
		pgDB.Close()
	}
	_ = ledgerStore.Close()
}

// evidenceAuditTrailForEscalation adapts evidence.Service.StoreArtifact
// to escalation.AuditTrailRecorder.
func evidenceAuditTrailForEscalation(svc *evidence.Service) escalation.AuditTrailRecorder {
	return func(artifactType domain.ArtifactType, content []byte, source string, decisionIDs []string) error {
		_, err := svc.StoreArtifact(evidence.StoreRequest{
			ArtifactType:       artifactType,
			Content:            content,
			Source:             source,
			RelatedDecisionIDs: decisionIDs,
		})
		return err
	}
}

// evidenceAuditTrailForOverride adapts evidence.Service.StoreArtifact
// to override.AuditTrailRecorder.
func evidenceAuditTrailForOverride(svc *evidence.Service) override.AuditTrailRecorder {
	return func(decisionID string, content []byte) (string, error) {
		a, err := svc.StoreArtifact(evidence.StoreRequest{
			ArtifactType:       domain.ArtifactAttestation,
			Content:            content,
			Source:             "override_service",
			RelatedDecisionIDs: []string{decisionID},
		})
		if err != nil {
			return "", err
		}
		return a.ArtifactID, nil
	}
}

// Run starts the background sweepers — escalation SLA checking,
// notification forwarding, and the retention sweep — and blocks until
// ctx is canceled, then
// calls Shutdown with a fresh background context.
func (c *Core) Run(ctx context.Context) error {
	sweepCtx, cancel := context.WithCancel(context.Background())
	c.stopSweepers = cancel

	go c.escalationSvc.RunSweeper(sweepCtx, c.cfg.SLASweepInterval, func(err error) {
		c.logger.Error("escalation sweep failed", "error", err)
	})
	go c.forwardNotifications(sweepCtx)
	go c.runRetentionSweep(sweepCtx)

	<-ctx.Done()
	return c.Shutdown(context.Background())
}

func (c *Core) forwardNotifications(ctx context.Context) {
	notifications := c.escalationSvc.Notifications()
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-notifications:
			if !ok {
				return
			}
			if c.notificationTransport == nil {
				continue
			}
			if err := c.notificationTransport.Deliver(ctx, n); err != nil {
				c.logger.Error("notification delivery failed", "subject", n.Subject, "error", err)
			}
		}
	}
}

// runRetentionSweep periodically re-classifies every ledger entry and
// passes each entry whose retention window has elapsed and that is not
// under legal hold to retention.Service.Anonymize. The redacted copy
// Anonymize returns is discarded: ledger entries are left unchanged.
func (c *Core) runRetentionSweep(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RetentionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.sweepRetention(ctx); err != nil {
				c.logger.Error("retention sweep failed", "error", err)
			}
		}
	}
}

func (c *Core) sweepRetention(ctx context.Context) error {
	entries, err := c.ledger.Entries(ctx)
	if err != nil {
		return fmt.Errorf("lexecon: read ledger entries for retention sweep: %w", err)
	}
	now := time.Now().UTC()
	for _, e := range entries {
		class := c.retentionSvc.Classify(retention.ClassifyInput{
			EventType: e.EventType,
			Data:      e.Data,
		})
		if now.Before(e.Timestamp.Add(domain.RetentionWindow(class))) {
			continue
		}
		if c.retentionSvc.IsHeld(e.EntryID) {
			continue
		}
		c.retentionSvc.Anonymize(e.EntryID, e.Data)
	}
	return nil
}

// Shutdown stops the background sweepers and releases the durable
// stores. Safe to call once; Run calls it automatically on context
// cancellation.
func (c *Core) Shutdown(ctx context.Context) error {
	if c.stopSweepers != nil {
		c.stopSweepers()
	}
	var firstErr error
	if err := c.ledgerStore.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("lexecon: close ledger store: %w", err)
	}
	if c.pgDB != nil {
		c.pgDB.Close()
	}
	if err := c.otelShutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("lexecon: shutdown telemetry: %w", err)
	}
	return firstErr
}

// Decide runs the full decision pipeline (C4), bounded by the
// configured decision concurrency (spec §5).
func (c *Core) Decide(ctx context.Context, req domain.DecisionRequest) (domain.DecisionResponse, error) {
	var resp domain.DecisionResponse
	err := c.pool.Run(ctx, func(ctx context.Context) error {
		var decideErr error
		resp, decideErr = c.decisionSvc.Decide(ctx, req)
		return decideErr
	})
	if err != nil {
		return domain.DecisionResponse{}, err
	}
	for _, hook := range c.eventHooks {
		if hookErr := hook.OnDecision(ctx, resp); hookErr != nil {
			c.logger.Error("event hook failed", "decision_id", resp.DecisionID, "error", hookErr)
		}
	}
	return resp, nil
}

// AssessRisk scores a decision's risk dimensions (C5), using the
// configured ExternalRiskScorer if one was supplied, then
// auto-escalates (C6) if the score crosses the spec's threshold.
func (c *Core) AssessRisk(ctx context.Context, req risk.AssessRequest) (domain.Risk, error) {
	var result domain.Risk
	var err error
	if c.externalRiskScorer != nil {
		result, err = c.externalRiskScorer.Score(ctx, req.DecisionID, req.Dimensions)
	} else {
		result, err = c.riskSvc.Assess(req)
	}
	if err != nil {
		return domain.Risk{}, err
	}
	if _, escErr := c.escalationSvc.AutoEscalateForRisk(result); escErr != nil {
		c.logger.Error("auto-escalation failed", "decision_id", result.DecisionID, "error", escErr)
	}
	return result, nil
}

// CreateEscalation opens a human-review escalation for a decision (C6).
func (c *Core) CreateEscalation(req escalation.CreateRequest) (domain.Escalation, error) {
	return c.escalationSvc.CreateEscalation(req)
}

// AcknowledgeEscalation transitions an escalation pending -> acknowledged.
func (c *Core) AcknowledgeEscalation(escalationID, actor string) (domain.Escalation, error) {
	return c.escalationSvc.AcknowledgeEscalation(escalationID, actor)
}

// ResolveEscalation closes an escalation with a terminal outcome.
func (c *Core) ResolveEscalation(escalationID, actor string, outcome domain.EscalationOutcome, notes string) (domain.Escalation, error) {
	return c.escalationSvc.ResolveEscalation(escalationID, actor, outcome, notes)
}

// Notifications exposes the raw escalation notification stream, for
// callers that want to consume it directly instead of (or in addition
// to) a registered NotificationTransport.
func (c *Core) Notifications() <-chan domain.Notification {
	return c.escalationSvc.Notifications()
}

// CreateOverride records an authorized override of a decision's
// operative outcome (C7).
func (c *Core) CreateOverride(req override.CreateRequest) (domain.Override, error) {
	return c.overrideSvc.CreateOverride(req)
}

// GetDecisionWithOverrideStatus returns resp augmented with its active
// override, if any.
func (c *Core) GetDecisionWithOverrideStatus(decisionID string, resp domain.DecisionResponse) domain.DecisionWithOverrideStatus {
	return c.overrideSvc.GetDecisionWithOverrideStatus(decisionID, resp)
}

// StoreEvidence stores a new immutable evidence artifact (C8).
func (c *Core) StoreEvidence(req evidence.StoreRequest) (domain.EvidenceArtifact, error) {
	return c.evidenceSvc.StoreArtifact(req)
}

// SignEvidence attaches a digital signature to a previously stored
// artifact using the Core's own signer.
func (c *Core) SignEvidence(artifactID string) error {
	a, ok := c.evidenceSvc.Get(artifactID)
	if !ok {
		return errs.New(errs.KindNotFound, fmt.Sprintf("lexecon: artifact %s not found", artifactID))
	}
	sig, err := c.signer.Sign(a)
	if err != nil {
		return errs.Wrap(errs.KindSigning, "sign evidence artifact", err)
	}
	return c.evidenceSvc.SignArtifact(artifactID, c.signer.KeyID(), sig, "ed25519")
}

// VerifyEvidenceIntegrity recomputes an artifact's content hash and
// compares it against the hash recorded at store time (C8).
func (c *Core) VerifyEvidenceIntegrity(artifactID string, content []byte) (bool, error) {
	return c.evidenceSvc.VerifyIntegrity(artifactID, content)
}

// EvidenceLineage returns every artifact related to a decision (C8).
func (c *Core) EvidenceLineage(decisionID string) []domain.EvidenceArtifact {
	return c.evidenceSvc.ExportLineage(decisionID)
}

// RecordResponsibility records who is accountable for a decision (C9).
func (c *Core) RecordResponsibility(req responsibility.RecordRequest) (domain.ResponsibilityRecord, error) {
	return c.responsibility.Record(req)
}

// GenerateExport renders a scoped, filtered audit export (C10).
func (c *Core) GenerateExport(ctx context.Context, req domain.ExportRequest) (domain.ExportPackage, error) {
	return c.exportSvc.GenerateExport(ctx, req)
}

// GenerateAuditBundle produces the full ZIP evidence bundle (C10).
func (c *Core) GenerateAuditBundle(ctx context.Context, sign bool) ([]byte, error) {
	return c.exportSvc.GenerateBundle(ctx, sign)
}

// ApplyLegalHold freezes ledger entries from anonymization (C11).
func (c *Core) ApplyLegalHold(holdID, reason string, entryIDs []string, requester string) (domain.LegalHold, error) {
	return c.retentionSvc.ApplyLegalHold(holdID, reason, entryIDs, requester)
}

// RecordIntervention logs a signed human oversight record (C12).
func (c *Core) RecordIntervention(req oversight.RecordRequest) (domain.HumanIntervention, error) {
	return c.oversightSvc.RecordIntervention(req)
}

// GenerateEffectivenessReport summarizes human-oversight effectiveness
// over a window (C12).
func (c *Core) GenerateEffectivenessReport(start, end time.Time) oversight.EffectivenessReport {
	return c.oversightSvc.GenerateEffectivenessReport(start, end)
}

// VerifyLedgerIntegrity recomputes the hash chain end to end (C2).
func (c *Core) VerifyLedgerIntegrity(ctx context.Context) (domain.IntegrityReport, error) {
	return c.ledger.VerifyIntegrity(ctx)
}

// VerifyDecision verifies a single decision's ledger entry, by its
// ledger_entry_hash, rather than walking the full chain (spec §6.1
// VerifyDecision, distinct from VerifyLedgerIntegrity).
func (c *Core) VerifyDecision(ctx context.Context, ledgerEntryHash string) (domain.VerificationResult, error) {
	verified, entry, err := c.ledger.VerifyEntry(ctx, ledgerEntryHash)
	if err != nil {
		return domain.VerificationResult{}, err
	}
	result := domain.VerificationResult{Verified: verified}
	if verified {
		e := entry
		result.Entry = &e
	}
	return result, nil
}

// LoadPolicy atomically replaces the active policy (C3).
func (c *Core) LoadPolicy(doc policy.Document) (policy.LoadResult, error) {
	return c.policyEngine.LoadPolicy(doc)
}

// Logger exposes the Core's structured logger for callers embedding
// it (e.g. a cmd/ entrypoint wiring its own signal handling).
func (c *Core) Logger() *slog.Logger { return c.logger }

// Version returns the Core's reported version string.
func (c *Core) Version() string { return c.version }
