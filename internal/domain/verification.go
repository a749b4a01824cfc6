package domain

import (
	"errors"
	"strings"
)

// VerificationStatus is the verdict assigned to a claim.
type VerificationStatus string

const (
	StatusVerified      VerificationStatus = "verified"
	StatusFalse         VerificationStatus = "false"
	StatusPartiallyTrue VerificationStatus = "partially_true"
	StatusMisleading    VerificationStatus = "misleading"
	StatusUnverifiable  VerificationStatus = "unverifiable"
	StatusDisputed      VerificationStatus = "disputed"
)

// AllStatuses lists every status in reporting order.
var AllStatuses = []VerificationStatus{
	StatusVerified, StatusFalse, StatusPartiallyTrue,
	StatusMisleading, StatusUnverifiable, StatusDisputed,
}

// ErrMalformedVerdict marks a verifier response that fails validation.
var ErrMalformedVerdict = errors.New("malformed verdict")

// ParseStatus maps s onto a status. "unverified" is accepted as unverifiable.
func ParseStatus(s string) (VerificationStatus, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	if norm == "unverified" {
		return StatusUnverifiable, true
	}
	for _, st := range AllStatuses {
		if VerificationStatus(norm) == st {
			return st, true
		}
	}
	return "", false
}

// Verdict is what a verifier returns for one claim.
type Verdict struct {
	Status     VerificationStatus `json:"status"`
	Confidence int                `json:"confidence"`
	Evidence   string             `json:"evidence"`
	Sources    []string           `json:"sources"`
}

// VerificationResult is the verdict bound to the claim it judges.
type VerificationResult struct {
	Claim      ExtractedClaim     `json:"claim"`
	Status     VerificationStatus `json:"status"`
	Confidence int                `json:"confidence"`
	Evidence   string             `json:"evidence"`
	Sources    []string           `json:"sources"`
	// Error carries the failure reason when the verdict is a degraded default.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the verdict is a degraded default.
func (r *VerificationResult) Failed() bool {
	return r.Error != ""
}

// UnverifiableResult is the degraded verdict for a claim whose verification failed.
func UnverifiableResult(claim ExtractedClaim, err error) VerificationResult {
	return VerificationResult{
		Claim:      claim,
		Status:     StatusUnverifiable,
		Confidence: 0,
		Evidence:   "verification error: " + err.Error(),
		Sources:    []string{},
		Error:      err.Error(),
	}
}
