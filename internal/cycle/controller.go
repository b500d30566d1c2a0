// Package cycle drives the interaction loop on an acquired session: locate
// the form, fill it, submit, clear any email challenge, and validate, with
// a bounded resubmission budget.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/forms"
	"github.com/jonathan/auto-apply/internal/types"
	"github.com/jonathan/auto-apply/internal/verification"
)

// Disposition is how the interaction cycle ended.
type Disposition string

const (
	// DispositionSubmitted means the submission was validated as accepted.
	DispositionSubmitted Disposition = "SUBMITTED"
	// DispositionManualRequired means the outcome is ambiguous and a human
	// must finish or confirm the application.
	DispositionManualRequired Disposition = "MANUAL_REQUIRED"
	// DispositionFailed means the cycle conclusively failed.
	DispositionFailed Disposition = "FAILED"
)

// Outcome is the cycle's report to the orchestrator.
type Outcome struct {
	Disposition  Disposition
	Fill         types.FillResult
	LastVerdict  *types.ValidationVerdict
	Verification *types.VerificationOutcome
	Attempts     int
	// Err is set for failed dispositions.
	Err *types.RecordError
}

// FormLocator finds the application form on the session's page.
type FormLocator interface {
	Locate(ctx context.Context, session browser.Session, jobURL string) (*forms.Target, error)
}

// ChallengeResolver clears email-verification challenges. The document is
// the one hosting the form, which for embedded forms is a frame rather than
// the top-level page.
type ChallengeResolver interface {
	Resolve(ctx context.Context, session browser.Session, doc browser.Document, challenge verification.Challenge, since time.Time) (types.VerificationOutcome, error)
}

// Request carries the inputs for one cycle run.
type Request struct {
	Profile    *types.UserProfile
	Job        types.JobContext
	ResumePath string
}

// Controller runs the interaction cycle.
type Controller struct {
	locator   FormLocator
	filler    forms.Filler
	submitter forms.Submitter
	validator forms.Validator
	resolver  ChallengeResolver
	cfg       *config.Config
	log       *zap.Logger
}

// NewController creates a Controller.
func NewController(locator FormLocator, filler forms.Filler, submitter forms.Submitter, validator forms.Validator, resolver ChallengeResolver, cfg *config.Config, log *zap.Logger) *Controller {
	return &Controller{
		locator:   locator,
		filler:    filler,
		submitter: submitter,
		validator: validator,
		resolver:  resolver,
		cfg:       cfg,
		log:       log,
	}
}

// Run executes the cycle on an already-navigated session. Business failures
// (no form, nothing filled, rejection after the attempt budget) come back in
// the Outcome; the error return is reserved for infrastructure failures.
//
// The controller owns the confidence ladder. An attempt whose confidence
// clears the accept threshold is submitted; anything below it is retried
// while attempts remain. Only after the budget is spent does the uncertain
// threshold decide between escalation and failure. A retry re-enters
// submission, not filling; the one exception is a verdict flagging missing
// required fields, which triggers a targeted re-fill of empty required
// fields before the next submit.
func (c *Controller) Run(ctx context.Context, session browser.Session, req Request) (Outcome, error) {
	outcome := Outcome{}

	target, err := c.locator.Locate(ctx, session, req.Job.URL)
	if err != nil {
		if errors.Is(err, forms.ErrFormNotFound) {
			outcome.Disposition = DispositionFailed
			outcome.Err = &types.RecordError{
				Kind:    types.ErrKindNoFieldsFilled,
				Message: "no application form found on the page",
			}
			return outcome, nil
		}
		return outcome, fmt.Errorf("failed to locate form: %w", err)
	}

	fill, err := c.filler.Fill(ctx, target, forms.FillRequest{
		Profile:    req.Profile,
		Job:        req.Job,
		ResumePath: req.ResumePath,
	})
	outcome.Fill = fill
	if err != nil && !errors.Is(err, forms.ErrNoFieldsFound) {
		return outcome, fmt.Errorf("failed to fill form: %w", err)
	}

	// Submitting an untouched form is never acceptable.
	if fill.FieldsFilled == 0 {
		outcome.Disposition = DispositionFailed
		outcome.Err = &types.RecordError{
			Kind:    types.ErrKindNoFieldsFilled,
			Message: "no form fields could be filled",
		}
		return outcome, nil
	}

	maxAttempts := c.cfg.MaxSubmitAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome.Attempts = attempt
		submittedAt := time.Now()

		submit, err := c.submitter.Submit(ctx, target, fill)
		if err != nil {
			return outcome, fmt.Errorf("failed to submit form: %w", err)
		}

		if err := c.clearChallenge(ctx, session, target, req.Profile, submittedAt, &outcome); err != nil {
			return outcome, err
		}

		verdict, err := c.validator.Validate(ctx, target, submit)
		if err != nil {
			return outcome, fmt.Errorf("failed to validate submission: %w", err)
		}
		outcome.LastVerdict = &verdict

		c.log.Info("cycle attempt validated",
			zap.Int("attempt", attempt),
			zap.Int("confidence", verdict.Confidence),
			zap.String("recommendation", string(verdict.Recommendation)))

		if verdict.Confidence >= c.cfg.AcceptConfidence {
			outcome.Disposition = DispositionSubmitted
			return outcome, nil
		}

		if attempt < maxAttempts {
			if verdict.HasMissingRequired() {
				repaired, err := c.filler.RefillEmptyRequired(ctx, target, forms.FillRequest{
					Profile:    req.Profile,
					Job:        req.Job,
					ResumePath: req.ResumePath,
				})
				if err != nil {
					return outcome, fmt.Errorf("failed to re-fill required fields: %w", err)
				}
				c.log.Info("re-filled empty required fields", zap.Int("repaired", repaired))
			}
			continue
		}

		// Budget spent. An ambiguous last verdict escalates; a clearly
		// rejected one fails.
		if verdict.Confidence >= c.cfg.UncertainConfidence {
			outcome.Disposition = DispositionManualRequired
			return outcome, nil
		}
	}

	outcome.Disposition = DispositionFailed
	outcome.Err = &types.RecordError{
		Kind:    types.ErrKindSubmissionRejected,
		Message: fmt.Sprintf("submission not accepted after %d attempts", outcome.Attempts),
	}
	return outcome, nil
}

// clearChallenge checks the working document for an email-verification
// interstitial after submit and resolves it when a mailbox is available. An
// unresolved challenge never blocks the cycle; it is recorded and validation
// proceeds. For an embedded form the interstitial renders inside the frame,
// so detection and code entry both use target.Doc, not the top-level page.
func (c *Controller) clearChallenge(ctx context.Context, session browser.Session, target *forms.Target, profile *types.UserProfile, since time.Time, outcome *Outcome) error {
	html, err := target.Doc.HTML(ctx)
	if err != nil {
		return fmt.Errorf("failed to read document for challenge detection: %w", err)
	}

	challenge := verification.DetectChallenge(html)
	if !challenge.Present {
		return nil
	}

	if !profile.MailboxLinked || c.resolver == nil {
		c.log.Warn("verification challenge detected but mailbox is not linked")
		outcome.Verification = &types.VerificationOutcome{Detected: true}
		return nil
	}

	result, err := c.resolver.Resolve(ctx, session, target.Doc, challenge, since)
	outcome.Verification = &result
	if err != nil {
		// Challenge resolution is best effort. Validation decides what the
		// page state means either way.
		c.log.Warn("challenge resolution failed", zap.Error(err))
	}
	return nil
}
