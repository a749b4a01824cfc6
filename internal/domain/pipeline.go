package domain

// State is a coordinator state.
type State string

const (
	StateReceived   State = "received"
	StateExtracting State = "extracting"
	StateNoClaims   State = "no_claims"
	StateVerifying  State = "verifying"
	StateSaving     State = "saving"
	StateReported   State = "reported"
)

// NoClaimsMessage is the fixed summary for submissions without verifiable claims.
const NoClaimsMessage = "No verifiable claims found in the submitted content."

// transitions lists the legal moves of the coordinator.
var transitions = map[State][]State{
	StateReceived:   {StateExtracting},
	StateExtracting: {StateNoClaims, StateVerifying},
	StateVerifying:  {StateSaving},
	StateSaving:     {StateReported},
}

// CanTransition reports whether the coordinator may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends the pipeline.
func (s State) Terminal() bool {
	return s == StateNoClaims || s == StateReported
}

// ClaimReport is one line of the pipeline result.
type ClaimReport struct {
	ClaimID     string             `json:"claim_id"`
	Claim       string             `json:"claim"`
	Category    Category           `json:"category"`
	Status      VerificationStatus `json:"status"`
	Confidence  int                `json:"confidence"`
	Evidence    string             `json:"evidence"`
	Sources     []string           `json:"sources"`
	VerifyError string             `json:"verify_error,omitempty"`
	RecordID    string             `json:"record_id,omitempty"`
	SaveSuccess bool               `json:"save_success"`
	SaveReason  string             `json:"save_reason,omitempty"`
}

// PipelineResult aggregates one submission's run.
type PipelineResult struct {
	SubmissionID      string                     `json:"submission_id"`
	State             State                      `json:"state"`
	Trace             []State                    `json:"trace"`
	Summary           string                     `json:"summary"`
	ContentSummary    string                     `json:"content_summary,omitempty"`
	ExtractionError   string                     `json:"extraction_error,omitempty"`
	Artifact          *ArtifactRef               `json:"artifact,omitempty"`
	TotalClaims       int                        `json:"total_claims"`
	StatusCounts      map[VerificationStatus]int `json:"status_counts"`
	VerifiedCount     int                        `json:"verified_count"`
	FalseCount        int                        `json:"false_count"`
	DisputedCount     int                        `json:"disputed_count"`
	UnverifiableCount int                        `json:"unverifiable_count"`
	VerifyFailedCount int                        `json:"verify_failed_count"`
	SavedCount        int                        `json:"saved_count"`
	SaveFailedCount   int                        `json:"save_failed_count"`
	PerClaim          []ClaimReport              `json:"per_claim"`
}
