package domain

import "fmt"

// MaxContextBytes is the ceiling internal/decision enforces on a
// serialized Context payload. The config value of the same name does
// not change it.
const MaxContextBytes = 64 * 1024

// Context is the runtime-typed payload attached to a request or event
// (spec §9 "Runtime-typed payloads"). It is populated by decoding
// JSON, so every leaf value is already one of the JSON-safe types:
// nil, bool, float64/json.Number, string, []any, map[string]any.
// Internal code never re-typecasts beyond this package's accessors.
type Context map[string]any

// ValidateSize reports an error if the context would serialize larger
// than maxBytes. Callers pass the already-marshaled canonical form so
// the bound is enforced against bytes actually hashed, not an estimate.
func ValidateSize(canonicalized []byte, maxBytes int) error {
	if len(canonicalized) > maxBytes {
		return fmt.Errorf("domain: context size %d exceeds maximum %d bytes", len(canonicalized), maxBytes)
	}
	return nil
}

// DataClass is a label drawn from an allowed vocabulary describing the
// sensitivity of data touched by a request.
type DataClass string

// allowedDataClasses is the vocabulary request.data_classes items must
// belong to (spec §4.4 "data_classes items within the allowed vocabulary").
var allowedDataClasses = map[DataClass]bool{
	"pii":               true,
	"phi":               true,
	"financial":         true,
	"credentials":       true,
	"intellectual_property": true,
	"public":            true,
	"internal_only":     true,
}

// ValidDataClass reports whether dc is in the allowed vocabulary.
func ValidDataClass(dc DataClass) bool { return allowedDataClasses[dc] }
