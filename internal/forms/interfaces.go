package forms

import (
	"context"
	"errors"

	"github.com/jonathan/auto-apply/internal/types"
)

// ErrFormNotFound means no application form was located on the page or in
// any of its frames.
var ErrFormNotFound = errors.New("no application form found")

// ErrNoFieldsFound means a form container was located but no fillable
// fields could be extracted from it.
var ErrNoFieldsFound = errors.New("no fillable fields found in form")

// FillRequest carries everything a filler needs for one pass.
type FillRequest struct {
	Profile *types.UserProfile
	Job     types.JobContext
	// ResumePath is the local path of the artifact to attach.
	ResumePath string
}

// Filler populates the located form from the candidate's profile.
type Filler interface {
	// Fill performs a full fill pass over the form.
	Fill(ctx context.Context, target *Target, req FillRequest) (types.FillResult, error)
	// RefillEmptyRequired re-fills only required fields that are still
	// empty, returning how many were repaired. Used after a validator
	// reports missing required fields.
	RefillEmptyRequired(ctx context.Context, target *Target, req FillRequest) (int, error)
}

// Submitter clicks the form's submit control and observes the immediate
// page response.
type Submitter interface {
	Submit(ctx context.Context, target *Target, fill types.FillResult) (types.SubmitResult, error)
}

// Validator judges whether a submission landed, producing a confidence
// score and a recommendation.
type Validator interface {
	Validate(ctx context.Context, target *Target, submit types.SubmitResult) (types.ValidationVerdict, error)
}
