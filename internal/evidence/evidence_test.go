package evidence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
)

func TestStoreArtifact_AssignsHashAndRetention(t *testing.T) {
	s := New(NewMemStore())
	a, err := s.StoreArtifact(StoreRequest{
		ArtifactType:       domain.ArtifactDecisionLog,
		Content:            []byte(`{"decision":"permit"}`),
		Source:             "decision_service",
		RelatedDecisionIDs: []string{"dec_x"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.SHA256Hash)
	assert.True(t, a.IsImmutable)
	assert.WithinDuration(t, time.Now().Add(7*365*24*time.Hour), a.RetentionUntil, 24*time.Hour)
}

func TestStoreArtifact_RejectsOversizedContent(t *testing.T) {
	s := New(NewMemStore())
	big := make([]byte, domain.MaxArtifactContentBytes+1)
	_, err := s.StoreArtifact(StoreRequest{ArtifactType: domain.ArtifactScreenshot, Content: big, Source: "x"})
	assert.Error(t, err)
}

func TestVerifyIntegrity(t *testing.T) {
	s := New(NewMemStore())
	content := []byte("evidence payload")
	a, err := s.StoreArtifact(StoreRequest{ArtifactType: domain.ArtifactAttestation, Content: content, Source: "x"})
	require.NoError(t, err)

	ok, err := s.VerifyIntegrity(a.ArtifactID, content)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VerifyIntegrity(a.ArtifactID, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignArtifact_OnceOnly(t *testing.T) {
	s := New(NewMemStore())
	a, err := s.StoreArtifact(StoreRequest{ArtifactType: domain.ArtifactAuditTrail, Content: []byte("x"), Source: "x"})
	require.NoError(t, err)

	require.NoError(t, s.SignArtifact(a.ArtifactID, "key_1", "sig==", "Ed25519"))
	err = s.SignArtifact(a.ArtifactID, "key_1", "sig2==", "Ed25519")
	assert.Error(t, err)
}

func TestExportLineage_OldestFirst(t *testing.T) {
	s := New(NewMemStore())
	_, err := s.StoreArtifact(StoreRequest{ArtifactType: domain.ArtifactDecisionLog, Content: []byte("1"), Source: "x", RelatedDecisionIDs: []string{"dec_x"}})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = s.StoreArtifact(StoreRequest{ArtifactType: domain.ArtifactAuditTrail, Content: []byte("2"), Source: "x", RelatedDecisionIDs: []string{"dec_x"}})
	require.NoError(t, err)

	lineage := s.ExportLineage("dec_x")
	require.Len(t, lineage, 2)
	assert.True(t, lineage[0].CreatedAt.Before(lineage[1].CreatedAt) || lineage[0].CreatedAt.Equal(lineage[1].CreatedAt))
}
