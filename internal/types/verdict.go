package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recommendation is the post-submission validator's advice.
type Recommendation string

const (
	// RecommendAccept means the submission very likely went through.
	RecommendAccept Recommendation = "ACCEPT"
	// RecommendRetry means the submission likely failed and is worth retrying.
	RecommendRetry Recommendation = "RETRY"
	// RecommendUncertain means the validator could not tell either way.
	RecommendUncertain Recommendation = "UNCERTAIN"
)

// FillResult is the field-intelligence collaborator's report after filling.
type FillResult struct {
	FieldsExtracted int    `json:"fields_extracted"`
	FieldsFilled    int    `json:"fields_filled"`
	SubmitSelector  string `json:"submit_selector,omitempty"`
}

// SubmitResult is the outcome of invoking the submit control.
type SubmitResult struct {
	Clicked    bool   `json:"clicked"`
	URLBefore  string `json:"url_before,omitempty"`
	URLAfter   string `json:"url_after,omitempty"`
	URLChanged bool   `json:"url_changed"`
}

// ValidationVerdict is a confidence-scored judgement of one submission
// attempt. Never persisted standalone; folded into record evidence.
type ValidationVerdict struct {
	Confidence     int            `json:"confidence"` // 0-100
	Recommendation Recommendation `json:"recommendation"`
	Issues         []string       `json:"issues,omitempty"`
}

// HasMissingRequired reports whether any issue flags an empty required
// field, which triggers a targeted re-fill before resubmission.
func (v *ValidationVerdict) HasMissingRequired() bool {
	for _, issue := range v.Issues {
		lower := strings.ToLower(issue)
		if strings.Contains(lower, "required") || strings.Contains(lower, "missing") {
			return true
		}
	}
	return false
}

// VerificationOutcome summarizes the email-verification sub-flow.
// Ephemeral; folded into record evidence on completion.
type VerificationOutcome struct {
	Detected  bool  `json:"detected"`
	Resolved  bool  `json:"resolved"`
	CodeFound bool  `json:"code_found"`
	LinkFound bool  `json:"link_found"`
	Attempts  int   `json:"attempts"`
	ElapsedMS int64 `json:"elapsed_ms"`
}

// Provenance tags where a resolved application document came from.
type Provenance string

const (
	// ProvenanceExistingForJob is an artifact produced for this exact job.
	ProvenanceExistingForJob Provenance = "EXISTING_FOR_JOB"
	// ProvenanceRecentForEmployer is an artifact tailored for the same
	// employer within the reuse window.
	ProvenanceRecentForEmployer Provenance = "RECENT_FOR_EMPLOYER"
	// ProvenanceNewlyGenerated is a freshly generated artifact.
	ProvenanceNewlyGenerated Provenance = "NEWLY_GENERATED"
	// ProvenanceGenericUpload is a user-uploaded generic document.
	ProvenanceGenericUpload Provenance = "GENERIC_UPLOAD"
	// ProvenanceLatestGenerated is the most recent generated document for
	// the user regardless of employer.
	ProvenanceLatestGenerated Provenance = "LATEST_GENERATED"
)

// DocumentKind distinguishes generated artifacts from user uploads.
type DocumentKind string

const (
	// DocumentGenerated is a document produced by the generator collaborator.
	DocumentGenerated DocumentKind = "generated"
	// DocumentUploaded is a document the user uploaded themselves.
	DocumentUploaded DocumentKind = "uploaded"
)

// CandidateDocument is a stored application document (resume, cover letter).
type CandidateDocument struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	JobID     *uuid.UUID   `json:"job_id,omitempty"`
	Company   string       `json:"company,omitempty"`
	Kind      DocumentKind `json:"kind"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"created_at"`
}
