package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/testutil"
)

var testDB *DB

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()

	code := func() int {
		defer tc.Terminate()

		ctx := context.Background()
		logger := testutil.TestLogger()

		var err error
		testDB, err = tc.NewTestDB(ctx, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "postgres_test: failed to create test DB: %v\n", err)
			return 1
		}
		defer testDB.Close()

		return m.Run()
	}()

	os.Exit(code)
}

func uniqueID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.New().String()[:8])
}

func TestEvidenceStore_PutGetSignAndQuery(t *testing.T) {
	store := NewEvidenceStore(testDB)
	decisionID := uniqueID("dec")
	artifact := domain.EvidenceArtifact{
		ArtifactID:         uniqueID("art"),
		ArtifactType:       domain.ArtifactDecisionLog,
		SHA256Hash:         "deadbeef",
		SizeBytes:          128,
		Source:             "decision_service",
		RelatedDecisionIDs: []string{decisionID},
		RelatedControlIDs:  []string{"ctrl_data_residency"},
		RetentionUntil:     time.Now().UTC().Add(7 * 365 * 24 * time.Hour),
		IsImmutable:        true,
		CreatedAt:          time.Now().UTC(),
	}

	require.NoError(t, store.Put(artifact))

	got, ok := store.Get(artifact.ArtifactID)
	require.True(t, ok)
	assert.Equal(t, artifact.ArtifactID, got.ArtifactID)
	assert.Nil(t, got.DigitalSignature)

	sig := domain.DigitalSignature{SignerID: "key_1", Algorithm: "ed25519", Signature: "c2lnbmF0dXJl"}
	require.NoError(t, store.Sign(artifact.ArtifactID, sig))

	signed, ok := store.Get(artifact.ArtifactID)
	require.True(t, ok)
	require.NotNil(t, signed.DigitalSignature)
	assert.Equal(t, "key_1", signed.DigitalSignature.SignerID)

	err := store.Sign(artifact.ArtifactID, sig)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindConflict, kind)

	byDecision := store.ByDecision(decisionID)
	assert.Len(t, byDecision, 1)

	byControl := store.ByControl("ctrl_data_residency")
	assert.NotEmpty(t, byControl)

	byType := store.ByType(domain.ArtifactDecisionLog)
	assert.NotEmpty(t, byType)
}

func TestEvidenceStore_SignUnknownArtifact(t *testing.T) {
	store := NewEvidenceStore(testDB)
	err := store.Sign(uniqueID("art"), domain.DigitalSignature{})
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindNotFound, kind)
}

func TestEvidenceStore_PutDuplicateIsConflict(t *testing.T) {
	store := NewEvidenceStore(testDB)
	artifact := domain.EvidenceArtifact{
		ArtifactID:   uniqueID("art"),
		ArtifactType: domain.ArtifactAttestation,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.Put(artifact))

	err := store.Put(artifact)
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindConflict, kind)
}

func TestEscalationStore_PutUpdateAndNonTerminal(t *testing.T) {
	store := NewEscalationStore(testDB)
	decisionID := uniqueID("dec")
	esc := domain.Escalation{
		EscalationID: uniqueID("esc"),
		DecisionID:   decisionID,
		Trigger:      "risk_threshold",
		Status:       domain.EscalationPending,
		Priority:     domain.PriorityHigh,
		EscalatedTo:  []string{"on_call_engineer"},
		CreatedAt:    time.Now().UTC(),
		SLADeadline:  time.Now().UTC().Add(8 * time.Hour),
	}
	require.NoError(t, store.Put(esc))

	nonTerminal := store.NonTerminal()
	assert.NotEmpty(t, nonTerminal)

	esc.Status = domain.EscalationResolved
	require.NoError(t, store.Update(esc))

	got, ok := store.Get(esc.EscalationID)
	require.True(t, ok)
	assert.Equal(t, domain.EscalationResolved, got.Status)

	byDecision := store.ByDecision(decisionID)
	require.Len(t, byDecision, 1)
	assert.Equal(t, domain.EscalationResolved, byDecision[0].Status)
}

func TestEscalationStore_UpdateUnknownEscalation(t *testing.T) {
	store := NewEscalationStore(testDB)
	err := store.Update(domain.Escalation{EscalationID: uniqueID("esc"), Status: domain.EscalationResolved})
	require.Error(t, err)
	kind, ok := errs.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindNotFound, kind)
}

func TestOverrideStore_PutAndByDecision(t *testing.T) {
	store := NewOverrideStore(testDB)
	decisionID := uniqueID("dec")
	override := domain.Override{
		OverrideID:       uniqueID("ovr"),
		DecisionID:       decisionID,
		OverrideType:     domain.OverrideRiskAccepted,
		AuthorizedBy:     "usr_risk_owner",
		Justification:    "accepted residual risk for time-boxed migration",
		OriginalOutcome:  domain.VerdictDeny,
		NewOutcome:       domain.VerdictPermit,
		ReviewRequiredBy: time.Now().UTC().Add(72 * time.Hour),
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, store.Put(override))

	got := store.ByDecision(decisionID)
	require.Len(t, got, 1)
	assert.Equal(t, override.OverrideID, got[0].OverrideID)
}

func TestRetentionStore_PutAndAll(t *testing.T) {
	store := NewRetentionStore(testDB)
	hold := domain.LegalHold{
		HoldID:    uniqueID("hold"),
		Reason:    "litigation hold",
		EntryIDs:  []string{uniqueID("led")},
		Requester: "usr_legal",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Put(hold))

	all := store.All()
	found := false
	for _, h := range all {
		if h.HoldID == hold.HoldID {
			found = true
			assert.Equal(t, hold.Reason, h.Reason)
		}
	}
	assert.True(t, found)
}
