package logger

// Fields is a set of structured log fields.
type Fields map[string]interface{}

// Tracing fields, carried through context from ingress to report.
const (
	FieldService      = "service"
	FieldRequestID    = "request_id"
	FieldSubmissionID = "submission_id"
	FieldClaimID      = "claim_id"
	FieldArtifactID   = "artifact_id"
	FieldStage        = "stage"
	FieldComponent    = "component"
	FieldSource       = "source"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldAttempt    = "attempt"
)
