// Package evidence implements the Evidence Service (C8):
// content-addressed, immutable artifact storage with indexing,
// once-only signing, and lineage export.
//
// The content-hash-then-index shape is grounded on akashi's
// internal/storage/evidence.go (indexed-by-decision storage) and
// internal/integrity/integrity.go (SHA-256 content hashing), adapted
// from akashi's trace-evidence rows to the spec's typed artifact model.
package evidence

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Store persists EvidenceArtifacts. An artifact, once keyed by
// artifact_id, may never be reassigned or deleted; Sign is the one
// permitted in-place update (spec §4.8, "signing bypasses the
// append-only wrapper because it is a schema-level addendum").
type Store interface {
	Put(a domain.EvidenceArtifact) error
	Get(artifactID string) (domain.EvidenceArtifact, bool)
	Sign(artifactID string, sig domain.DigitalSignature) error
	ByDecision(decisionID string) []domain.EvidenceArtifact
	ByControl(controlID string) []domain.EvidenceArtifact
	ByType(t domain.ArtifactType) []domain.EvidenceArtifact
}

// MemStore is the default in-memory Store.
type MemStore struct {
	mu   sync.RWMutex
	byID map[string]domain.EvidenceArtifact
}

func NewMemStore() *MemStore {
	return &MemStore{byID: make(map[string]domain.EvidenceArtifact)}
}

func (m *MemStore) Put(a domain.EvidenceArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[a.ArtifactID]; exists {
		return errs.New(errs.KindConflict, fmt.Sprintf("evidence: artifact %s already exists", a.ArtifactID))
	}
	m.byID[a.ArtifactID] = a
	return nil
}

func (m *MemStore) Get(artifactID string) (domain.EvidenceArtifact, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byID[artifactID]
	return a, ok
}

func (m *MemStore) Sign(artifactID string, sig domain.DigitalSignature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[artifactID]
	if !ok {
		return errs.New(errs.KindNotFound, fmt.Sprintf("evidence: artifact %s not found", artifactID))
	}
	if a.DigitalSignature != nil {
		return errs.New(errs.KindConflict, fmt.Sprintf("evidence: artifact %s is already signed", artifactID))
	}
	a.DigitalSignature = &sig
	m.byID[artifactID] = a
	return nil
}

func (m *MemStore) ByDecision(decisionID string) []domain.EvidenceArtifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.EvidenceArtifact
	for _, a := range m.byID {
		for _, id := range a.RelatedDecisionIDs {
			if id == decisionID {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func (m *MemStore) ByControl(controlID string) []domain.EvidenceArtifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.EvidenceArtifact
	for _, a := range m.byID {
		for _, id := range a.RelatedControlIDs {
			if id == controlID {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

func (m *MemStore) ByType(t domain.ArtifactType) []domain.EvidenceArtifact {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.EvidenceArtifact
	for _, a := range m.byID {
		if a.ArtifactType == t {
			out = append(out, a)
		}
	}
	return out
}

// Service manages evidence artifacts (spec §4.8).
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

// StoreRequest is the input to StoreArtifact.
type StoreRequest struct {
	ArtifactType       domain.ArtifactType
	Content            []byte
	Source             string
	ContentType        string
	StorageURI         string
	RelatedDecisionIDs []string
	RelatedControlIDs  []string
	RetentionOverride  *time.Duration
}

// StoreArtifact hashes content, assigns retention, and indexes a new
// immutable EvidenceArtifact.
func (s *Service) StoreArtifact(req StoreRequest) (domain.EvidenceArtifact, error) {
	if len(req.Content) > domain.MaxArtifactContentBytes {
		return domain.EvidenceArtifact{}, errs.New(errs.KindValidation, fmt.Sprintf("evidence: content size %d exceeds maximum %d bytes", len(req.Content), domain.MaxArtifactContentBytes))
	}
	if req.Source == "" {
		return domain.EvidenceArtifact{}, errs.New(errs.KindValidation, "evidence: source is required")
	}

	artifactID, err := domain.NewEvidenceID(string(req.ArtifactType))
	if err != nil {
		return domain.EvidenceArtifact{}, errs.Wrap(errs.KindValidation, "generate artifact id", err)
	}

	retention := domain.DefaultRetentionFor(req.ArtifactType)
	if req.RetentionOverride != nil {
		retention = *req.RetentionOverride
	}

	now := time.Now().UTC()
	artifact := domain.EvidenceArtifact{
		ArtifactID:         artifactID,
		ArtifactType:       req.ArtifactType,
		SHA256Hash:         hashContent(req.Content),
		SizeBytes:          int64(len(req.Content)),
		Source:             req.Source,
		ContentType:        req.ContentType,
		StorageURI:         req.StorageURI,
		RelatedDecisionIDs: req.RelatedDecisionIDs,
		RelatedControlIDs:  req.RelatedControlIDs,
		RetentionUntil:     now.Add(retention),
		IsImmutable:        true,
		CreatedAt:          now,
	}

	if err := s.store.Put(artifact); err != nil {
		return domain.EvidenceArtifact{}, err
	}
	return artifact, nil
}

// VerifyIntegrity recomputes content's hash and compares it against
// the stored artifact's sha256_hash.
func (s *Service) VerifyIntegrity(artifactID string, content []byte) (bool, error) {
	a, ok := s.store.Get(artifactID)
	if !ok {
		return false, errs.New(errs.KindNotFound, fmt.Sprintf("evidence: artifact %s not found", artifactID))
	}
	return hashContent(content) == a.SHA256Hash, nil
}

// SignArtifact attaches a digital signature, permitted only once per
// artifact (spec §4.8).
func (s *Service) SignArtifact(artifactID, signerID, signature, algorithm string) error {
	return s.store.Sign(artifactID, domain.DigitalSignature{
		SignerID:  signerID,
		Signature: signature,
		Algorithm: algorithm,
		SignedAt:  time.Now().UTC(),
	})
}

// Get returns an artifact by id.
func (s *Service) Get(artifactID string) (domain.EvidenceArtifact, bool) {
	return s.store.Get(artifactID)
}

// ExportLineage returns every artifact related to decisionID,
// oldest-first (spec §4.8).
func (s *Service) ExportLineage(decisionID string) []domain.EvidenceArtifact {
	artifacts := s.store.ByDecision(decisionID)
	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})
	return artifacts
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
