package model

// RejectionReason classifies why a row was diverted out of the pipeline.
type RejectionReason string

const (
	// Validator reasons.
	ReasonMissingField   RejectionReason = "missing_field"
	ReasonMalformedValue RejectionReason = "malformed_value"
	ReasonOutOfRange     RejectionReason = "out_of_range"

	// Transformer reasons.
	ReasonDimensionResolutionFailed RejectionReason = "dimension_resolution_failed"
	ReasonDerivationFailed          RejectionReason = "derivation_failed"

	// Loader reason. A natural-key conflict means the row was already
	// loaded; it is counted here, never treated as a fatal error.
	ReasonDuplicateNaturalKey RejectionReason = "duplicate_natural_key"
)

// Rejection is one row diverted out of a stage with its reason. Record
// holds the row as the stage saw it (raw, typed or fact shaped) and is
// persisted as JSON for replay and debugging.
type Rejection struct {
	Stage      Stage           `json:"stage"`
	Reason     RejectionReason `json:"reason"`
	Field      string          `json:"field,omitempty"`
	SourceFile string          `json:"source_file"`
	Record     interface{}     `json:"record"`
}

// ValidationOutcome is the tagged result of validating one staged row:
// exactly one of Trip or Reject is set.
type ValidationOutcome struct {
	Trip   *TypedTripRecord
	Reject *Rejection
}

// Accepted reports whether the row passed validation.
func (o ValidationOutcome) Accepted() bool { return o.Trip != nil }
