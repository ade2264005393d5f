package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"gopkg.in/yaml.v3"
)

// Snapshot is the complete, immutable input to one assessment.
type Snapshot struct {
	Unit        UnitProfile             `json:"unit" yaml:"unit"`
	Environment EnvironmentObservations `json:"environment" yaml:"environment"`
	Condition   ConditionObservations   `json:"condition" yaml:"condition"`

	// ReplacementCost is supplied by the pricing collaborator and treated as
	// opaque. Nil falls back to a static estimate per fuel type.
	ReplacementCost *float64 `json:"replacement_cost,omitempty" yaml:"replacement_cost"`

	// AsOf anchors date outputs. Zero leaves TargetDate unset.
	AsOf time.Time `json:"as_of,omitzero" yaml:"as_of"`
}

// Fingerprint returns a stable digest of the snapshot, suitable as a
// memoization key. Struct field order makes the JSON encoding canonical.
// JSON can not carry NaN or Inf, so a snapshot holding one is hashed from its
// YAML encoding instead, under its own prefix so the two forms never collide.
func (s Snapshot) Fingerprint() string {
	h := sha256.New()
	if b, err := json.Marshal(s); err == nil {
		h.Write(b)
	} else {
		b, err := yaml.Marshal(s)
		if err != nil {
			// yaml encodes every field type a Snapshot holds.
			panic(err)
		}
		h.Write([]byte("yaml\n"))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}
