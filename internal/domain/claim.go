package domain

import "strings"

// Category is the topical bucket of a claim.
type Category string

const (
	CategoryHealth     Category = "health"
	CategoryPolitics   Category = "politics"
	CategoryScience    Category = "science"
	CategoryTechnology Category = "technology"
	CategoryFinance    Category = "finance"
	CategoryGeneral    Category = "general"
)

// ParseCategory maps s onto a known category, falling back to general.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryHealth, CategoryPolitics, CategoryScience, CategoryTechnology, CategoryFinance, CategoryGeneral:
		return c
	}
	return CategoryGeneral
}

// ExtractedClaim is one atomic, self-contained factual statement.
type ExtractedClaim struct {
	ClaimID       string   `json:"claim_id"`
	Text          string   `json:"claim"`
	Category      Category `json:"category"`
	Context       string   `json:"context,omitempty"`
	ClaimType     string   `json:"claim_type,omitempty"`
	SpanText      string   `json:"span_text,omitempty"`
	ConfidenceEst int      `json:"confidence_est,omitempty"`
	// SourceSubmission is the submission ID, kept for lookup only.
	SourceSubmission string `json:"source_submission,omitempty"`
}

// Extraction is the normalized output of the extraction stage.
type Extraction struct {
	Claims       []ExtractedClaim `json:"claims"`
	Summary      string           `json:"summary"`
	ResolvedKind string           `json:"resolved_kind,omitempty"`
}
