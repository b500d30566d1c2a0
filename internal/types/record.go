// Package types defines the shared data model for the application
// submission orchestrator: requests, records, verdicts, and evidence.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an ApplicationRecord.
type Status string

const (
	// StatusPending means the record exists but orchestration has not started.
	StatusPending Status = "PENDING"
	// StatusApplying means an orchestration run is in progress.
	StatusApplying Status = "APPLYING"
	// StatusSubmitted is terminal success: validation accepted the submission.
	StatusSubmitted Status = "SUBMITTED"
	// StatusManualRequired is terminal but not a failure: automation could not
	// confidently finish and the user should complete the application by hand.
	StatusManualRequired Status = "MANUAL_REQUIRED"
	// StatusFailed is terminal failure; the record always carries an error.
	StatusFailed Status = "FAILED"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSubmitted, StatusManualRequired, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal
// status transition. Terminal states are never re-entered.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case StatusPending:
		return next == StatusApplying || next == StatusFailed
	case StatusApplying:
		return next.Terminal()
	}
	return false
}

// ErrorKind classifies a terminal failure on an ApplicationRecord.
type ErrorKind string

const (
	// ErrKindNoArtifact means no application document could be resolved.
	ErrKindNoArtifact ErrorKind = "NO_ARTIFACT_AVAILABLE"
	// ErrKindSessionAcquisition means no browser session could be obtained.
	ErrKindSessionAcquisition ErrorKind = "SESSION_ACQUISITION_FAILED"
	// ErrKindNoFieldsFilled means the filler found or filled zero fields.
	ErrKindNoFieldsFilled ErrorKind = "NO_FIELDS_FILLED"
	// ErrKindSubmissionRejected means validation rejected every attempt.
	ErrKindSubmissionRejected ErrorKind = "SUBMISSION_REJECTED"
	// ErrKindVerificationUnresolved means an email challenge was detected but
	// never resolved within the polling window.
	ErrKindVerificationUnresolved ErrorKind = "VERIFICATION_UNRESOLVED"
	// ErrKindProcessing covers any other error during orchestration.
	ErrKindProcessing ErrorKind = "PROCESSING_ERROR"
)

// RecordError is the typed error persisted on a failed record.
type RecordError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// JobContext carries the job-side inputs an orchestration run needs.
type JobContext struct {
	JobID       uuid.UUID `json:"job_id"`
	URL         string    `json:"url"`
	Company     string    `json:"company"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}

// ApplicationRequest identifies one (user, job, record) triple to apply for.
// Immutable once created.
type ApplicationRequest struct {
	UserID   uuid.UUID  `json:"user_id"`
	RecordID uuid.UUID  `json:"record_id,omitempty"`
	Job      JobContext `json:"job"`
}

// Evidence is the structured outcome blob attached to a record at a
// terminal transition. Never partially visible mid-run.
type Evidence struct {
	ScreenshotPath  string               `json:"screenshot_path,omitempty"`
	FinalURL        string               `json:"final_url,omitempty"`
	FieldsExtracted int                  `json:"fields_extracted"`
	FieldsFilled    int                  `json:"fields_filled"`
	Confidence      int                  `json:"confidence"`
	Attempts        int                  `json:"attempts"`
	Provenance      Provenance           `json:"artifact_provenance,omitempty"`
	Verification    *VerificationOutcome `json:"verification,omitempty"`
}

// ApplicationRecord is the durable, user-visible entity for one application.
type ApplicationRecord struct {
	ID          uuid.UUID    `json:"id"`
	UserID      uuid.UUID    `json:"user_id"`
	JobID       uuid.UUID    `json:"job_id"`
	JobURL      string       `json:"job_url"`
	Company     string       `json:"company"`
	Status      Status       `json:"status"`
	Method      string       `json:"method,omitempty"`
	Error       *RecordError `json:"error,omitempty"`
	Evidence    *Evidence    `json:"evidence,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}
