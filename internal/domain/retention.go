package domain

import "time"

// RetentionClass buckets a ledger entry for retention/legal-hold
// purposes (spec §4.11).
type RetentionClass string

const (
	RetentionHighRisk      RetentionClass = "high_risk"
	RetentionGDPRIntersect RetentionClass = "gdpr_intersect"
	RetentionStandard      RetentionClass = "standard"
)

// RetentionWindow returns the default retention duration for a class.
func RetentionWindow(c RetentionClass) time.Duration {
	const year = 365 * 24 * time.Hour
	switch c {
	case RetentionHighRisk:
		return 10 * year
	case RetentionGDPRIntersect:
		return 90 * 24 * time.Hour
	default:
		return 180 * 24 * time.Hour
	}
}

// LegalHold freezes a set of entries (or all entries) from deletion
// or anonymization.
type LegalHold struct {
	HoldID    string    `json:"hold_id"`
	Reason    string    `json:"reason"`
	EntryIDs  []string  `json:"entry_ids,omitempty"` // empty means "all".
	Requester string    `json:"requester"`
	CreatedAt time.Time `json:"created_at"`
}

// AppliesTo reports whether the hold covers entryID (an empty EntryIDs
// list covers every entry).
func (h LegalHold) AppliesTo(entryID string) bool {
	if len(h.EntryIDs) == 0 {
		return true
	}
	for _, id := range h.EntryIDs {
		if id == entryID {
			return true
		}
	}
	return false
}
