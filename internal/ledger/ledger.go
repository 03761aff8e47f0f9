// Package ledger implements the Ledger (C2): an append-only,
// hash-chained log of every governance event. All mutations are
// serialized under a single writer lock (spec §4.2, §5); persistence
// backends are pluggable via the Store interface.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// Store is the durable persistence contract a Ledger writes through.
// Implementations must make Append synchronous and durable before it
// returns (spec §4.2 "records persisted synchronously before append
// returns").
type Store interface {
	// Append persists entry. Implementations do not compute hashes or
	// enforce chain order — the Ledger does that before calling Append.
	Append(ctx context.Context, entry domain.LedgerEntry) error
	// Tail returns the most recently appended entry, or ok=false if the
	// store is empty (used to reconstruct the chain tail on startup).
	Tail(ctx context.Context) (entry domain.LedgerEntry, ok bool, err error)
	// GetByHash returns the entry whose entry_hash equals hash.
	GetByHash(ctx context.Context, hash string) (domain.LedgerEntry, bool, error)
	// GetByType returns entries of the given event type, insertion order.
	GetByType(ctx context.Context, t domain.LedgerEventType) ([]domain.LedgerEntry, error)
	// All returns every entry in insertion order.
	All(ctx context.Context) ([]domain.LedgerEntry, error)
}

// Ledger serializes appends under a single writer lock and exposes
// read operations over its Store.
type Ledger struct {
	mu    sync.Mutex
	store Store
}

// New constructs a Ledger over store, writing a genesis entry if the
// store is currently empty.
func New(ctx context.Context, store Store) (*Ledger, error) {
	l := &Ledger{store: store}

	_, ok, err := store.Tail(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "read ledger tail", err)
	}
	if !ok {
		if _, err := l.Append(ctx, domain.EventGenesis, map[string]any{}); err != nil {
			return nil, fmt.Errorf("ledger: write genesis entry: %w", err)
		}
	}
	return l, nil
}

// Append atomically acquires the chain tail, computes previous_hash,
// builds and hashes the entry, and persists it before returning
// (spec §4.2).
func (l *Ledger) Append(ctx context.Context, eventType domain.LedgerEventType, data map[string]any) (domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previousHash := domain.GenesisPreviousHash
	tail, ok, err := l.store.Tail(ctx)
	if err != nil {
		return domain.LedgerEntry{}, errs.Wrap(errs.KindPersistence, "read ledger tail", err)
	}
	if ok {
		previousHash = tail.EntryHash
	}

	if data == nil {
		data = map[string]any{}
	}

	entry := domain.LedgerEntry{
		EntryID:      "led_" + uuid.NewString(),
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		Data:         data,
		PreviousHash: previousHash,
	}

	hash, err := hashEntry(entry)
	if err != nil {
		return domain.LedgerEntry{}, errs.Wrap(errs.KindIntegrity, "hash ledger entry", err)
	}
	entry.EntryHash = hash

	if err := l.store.Append(ctx, entry); err != nil {
		return domain.LedgerEntry{}, errs.Wrap(errs.KindPersistence, "persist ledger entry", err)
	}
	return entry, nil
}

// GetEntry returns the entry with the given hash.
func (l *Ledger) GetEntry(ctx context.Context, entryHash string) (domain.LedgerEntry, error) {
	entry, ok, err := l.store.GetByHash(ctx, entryHash)
	if err != nil {
		return domain.LedgerEntry{}, errs.Wrap(errs.KindPersistence, "get ledger entry", err)
	}
	if !ok {
		return domain.LedgerEntry{}, errs.New(errs.KindNotFound, fmt.Sprintf("ledger entry %s not found", entryHash))
	}
	return entry, nil
}

// GetEntriesByType returns all entries of the given event type.
func (l *Ledger) GetEntriesByType(ctx context.Context, t domain.LedgerEventType) ([]domain.LedgerEntry, error) {
	entries, err := l.store.GetByType(ctx, t)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "get ledger entries by type", err)
	}
	return entries, nil
}

// Entries returns a full snapshot of the ledger in insertion order.
func (l *Ledger) Entries(ctx context.Context) ([]domain.LedgerEntry, error) {
	entries, err := l.store.All(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "snapshot ledger", err)
	}
	return entries, nil
}

// VerifyIntegrity walks the chain, recomputing each entry's hash and
// checking that previous_hash matches the prior entry's entry_hash.
// It is pure and repeatable: two calls on an unchanged ledger return
// equal results (spec invariant 8).
func (l *Ledger) VerifyIntegrity(ctx context.Context) (domain.IntegrityReport, error) {
	entries, err := l.store.All(ctx)
	if err != nil {
		return domain.IntegrityReport{}, errs.Wrap(errs.KindPersistence, "snapshot ledger for verification", err)
	}

	report := domain.IntegrityReport{ChainIntact: true, Valid: true}
	expectedPrevious := domain.GenesisPreviousHash

	for _, entry := range entries {
		report.EntriesChecked++

		recomputed, err := hashEntry(entry)
		if err != nil {
			report.Valid = false
			if report.FirstBroken == "" {
				report.FirstBroken = entry.EntryID
			}
			continue
		}

		if recomputed != entry.EntryHash || entry.PreviousHash != expectedPrevious {
			report.Valid = false
			report.ChainIntact = false
			if report.FirstBroken == "" {
				report.FirstBroken = entry.EntryID
			}
			expectedPrevious = entry.EntryHash
			continue
		}

		report.EntriesVerified++
		expectedPrevious = entry.EntryHash
	}

	return report, nil
}

// VerifyEntry recomputes a single entry's hash and, if it has a
// predecessor, confirms that predecessor is still present in the
// store. It is a narrower, single-entry counterpart to VerifyIntegrity
// used by VerifyDecision (spec §6.1): the entry is not found at all,
// its content has been tampered with, or its chain link is broken are
// all reported as verified=false rather than an error.
func (l *Ledger) VerifyEntry(ctx context.Context, entryHash string) (bool, domain.LedgerEntry, error) {
	entry, ok, err := l.store.GetByHash(ctx, entryHash)
	if err != nil {
		return false, domain.LedgerEntry{}, errs.Wrap(errs.KindPersistence, "get ledger entry", err)
	}
	if !ok {
		return false, domain.LedgerEntry{}, nil
	}

	recomputed, err := hashEntry(entry)
	if err != nil {
		return false, entry, errs.Wrap(errs.KindIntegrity, "recompute entry hash", err)
	}
	if recomputed != entry.EntryHash {
		return false, entry, nil
	}

	if entry.PreviousHash != domain.GenesisPreviousHash {
		_, ok, err := l.store.GetByHash(ctx, entry.PreviousHash)
		if err != nil {
			return false, entry, errs.Wrap(errs.KindPersistence, "get previous ledger entry", err)
		}
		if !ok {
			return false, entry, nil
		}
	}

	return true, entry, nil
}

// AuditReport summarizes the ledger for a compliance audit.
type AuditReport struct {
	TotalEntries   int                             `json:"total_entries"`
	EntriesByType  map[domain.LedgerEventType]int  `json:"entries_by_type"`
	OldestEntry    time.Time                       `json:"oldest_entry,omitempty"`
	NewestEntry    time.Time                       `json:"newest_entry,omitempty"`
	Integrity      domain.IntegrityReport          `json:"integrity"`
}

// GenerateAuditReport returns entry counts by type alongside the
// result of an integrity walk.
func (l *Ledger) GenerateAuditReport(ctx context.Context) (AuditReport, error) {
	entries, err := l.store.All(ctx)
	if err != nil {
		return AuditReport{}, errs.Wrap(errs.KindPersistence, "snapshot ledger for audit report", err)
	}
	integrity, err := l.VerifyIntegrity(ctx)
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{
		TotalEntries:  len(entries),
		EntriesByType: make(map[domain.LedgerEventType]int),
		Integrity:     integrity,
	}
	for i, entry := range entries {
		report.EntriesByType[entry.EventType]++
		if i == 0 {
			report.OldestEntry = entry.Timestamp
		}
		report.NewestEntry = entry.Timestamp
	}
	return report, nil
}

// hashEntry computes SHA256(canonical(content_without_hash(entry))),
// spec's entry_hash invariant.
func hashEntry(entry domain.LedgerEntry) (string, error) {
	preimage, err := canon.Marshal(entry.HashPreimage())
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(preimage)
	return hex.EncodeToString(sum[:]), nil
}
