package forms

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/types"
)

// fieldSpec describes one profile-backed form field: the selectors that may
// match it and how to derive its value from the fill request.
type fieldSpec struct {
	name      string
	required  bool
	selectors []string
	value     func(req FillRequest) string
}

// standardFields covers the fields nearly every application form carries.
// Selector lists are ordered most specific first.
var standardFields = []fieldSpec{
	{
		name:     "first_name",
		required: true,
		selectors: []string{
			"input[name='first_name']",
			"input[id='first_name']",
			"input[name*='firstName']",
			"input[autocomplete='given-name']",
			"input[name*='first']",
		},
		value: func(req FillRequest) string { return firstName(req.Profile.FullName) },
	},
	{
		name:     "last_name",
		required: true,
		selectors: []string{
			"input[name='last_name']",
			"input[id='last_name']",
			"input[name*='lastName']",
			"input[autocomplete='family-name']",
			"input[name*='last']",
		},
		value: func(req FillRequest) string { return lastName(req.Profile.FullName) },
	},
	{
		name:     "full_name",
		required: false,
		selectors: []string{
			"input[name='name']",
			"input[autocomplete='name']",
			"input[name*='full_name']",
			"input[name*='fullName']",
		},
		value: func(req FillRequest) string { return req.Profile.FullName },
	},
	{
		name:     "email",
		required: true,
		selectors: []string{
			"input[type='email']",
			"input[name='email']",
			"input[id='email']",
			"input[autocomplete='email']",
			"input[name*='email']",
		},
		value: func(req FillRequest) string { return req.Profile.Email },
	},
	{
		name:     "phone",
		required: false,
		selectors: []string{
			"input[type='tel']",
			"input[name='phone']",
			"input[id='phone']",
			"input[autocomplete='tel']",
			"input[name*='phone']",
		},
		value: func(req FillRequest) string { return req.Profile.Phone },
	},
	{
		name:     "location",
		required: false,
		selectors: []string{
			"input[name='location']",
			"input[id='candidate-location']",
			"input[name*='location']",
			"input[name*='city']",
		},
		value: func(req FillRequest) string { return req.Profile.Location },
	},
	{
		name:     "linkedin",
		required: false,
		selectors: []string{
			"input[name*='linkedin']",
			"input[id*='linkedin']",
			"input[name*='urls[LinkedIn]']",
		},
		value: func(req FillRequest) string { return req.Profile.LinkedIn },
	},
	{
		name:     "website",
		required: false,
		selectors: []string{
			"input[name*='website']",
			"input[name*='portfolio']",
			"input[name*='urls[Portfolio]']",
		},
		value: func(req FillRequest) string { return req.Profile.Website },
	},
	{
		name:     "work_authorization",
		required: false,
		selectors: []string{
			"select[name*='work_auth']",
			"select[name*='authorization']",
			"select[name*='sponsorship']",
			"input[name*='work_auth']",
			"input[name*='authorization']",
		},
		value: func(req FillRequest) string { return req.Profile.WorkAuth },
	},
}

var resumeSelectors = []string{
	"input[type='file'][name*='resume']",
	"input[type='file'][id*='resume']",
	"input[type='file'][name*='cv']",
	"input[type='file']",
}

var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"#submit_app",
	"button[class*='submit']",
	"[data-automation-id='bottom-navigation-next-button']",
}

// HeuristicFiller fills forms by probing a catalog of common selectors.
type HeuristicFiller struct {
	log *zap.Logger
}

// NewHeuristicFiller creates a HeuristicFiller.
func NewHeuristicFiller(log *zap.Logger) *HeuristicFiller {
	return &HeuristicFiller{log: log}
}

// Fill performs a full pass: every standard field with a non-empty value,
// plus the resume attachment. Fields whose selectors match nothing are
// counted as extracted only if at least one selector exists.
func (f *HeuristicFiller) Fill(ctx context.Context, target *Target, req FillRequest) (types.FillResult, error) {
	result := types.FillResult{}

	for _, spec := range standardFields {
		value := spec.value(req)
		sel, found, err := f.firstMatch(ctx, target, spec.selectors)
		if err != nil {
			return result, err
		}
		if !found {
			continue
		}
		result.FieldsExtracted++
		if value == "" {
			continue
		}
		if err := target.Doc.Clear(ctx, sel); err != nil {
			f.log.Debug("failed to clear field", zap.String("field", spec.name), zap.Error(err))
			continue
		}
		if err := target.Doc.Type(ctx, sel, value); err != nil {
			f.log.Debug("failed to fill field", zap.String("field", spec.name), zap.Error(err))
			continue
		}
		result.FieldsFilled++
	}

	// Screening questions the profile carries pre-collected answers for,
	// matched by the question slug.
	for slug, answer := range req.Profile.Answers {
		if answer == "" {
			continue
		}
		sel, found, err := f.firstMatch(ctx, target, answerSelectors(slug))
		if err != nil {
			return result, err
		}
		if !found {
			continue
		}
		result.FieldsExtracted++
		if err := target.Doc.Clear(ctx, sel); err != nil {
			f.log.Debug("failed to clear answer field", zap.String("question", slug), zap.Error(err))
			continue
		}
		if err := target.Doc.Type(ctx, sel, answer); err != nil {
			f.log.Debug("failed to fill answer field", zap.String("question", slug), zap.Error(err))
			continue
		}
		result.FieldsFilled++
	}

	if req.ResumePath != "" {
		sel, found, err := f.firstMatch(ctx, target, resumeSelectors)
		if err != nil {
			return result, err
		}
		if found {
			result.FieldsExtracted++
			if err := target.Doc.SetFile(ctx, sel, req.ResumePath); err != nil {
				f.log.Warn("failed to attach resume", zap.Error(err))
			} else {
				result.FieldsFilled++
			}
		}
	}

	if sel, found, err := f.firstMatch(ctx, target, submitSelectors); err != nil {
		return result, err
	} else if found {
		result.SubmitSelector = sel
	}

	if result.FieldsExtracted == 0 {
		return result, ErrNoFieldsFound
	}

	f.log.Info("form filled",
		zap.Int("extracted", result.FieldsExtracted),
		zap.Int("filled", result.FieldsFilled),
		zap.String("platform", string(target.Platform)))
	return result, nil
}

// RefillEmptyRequired revisits required fields and fills any that are still
// empty. Returns how many were repaired.
func (f *HeuristicFiller) RefillEmptyRequired(ctx context.Context, target *Target, req FillRequest) (int, error) {
	repaired := 0
	for _, spec := range standardFields {
		if !spec.required {
			continue
		}
		value := spec.value(req)
		if value == "" {
			continue
		}
		sel, found, err := f.firstMatch(ctx, target, spec.selectors)
		if err != nil {
			return repaired, err
		}
		if !found {
			continue
		}
		current, err := target.Doc.Value(ctx, sel)
		if err != nil {
			continue
		}
		if strings.TrimSpace(current) != "" {
			continue
		}
		if err := target.Doc.Type(ctx, sel, value); err != nil {
			continue
		}
		repaired++
	}
	return repaired, nil
}

// firstMatch returns the first selector in the list that exists in the
// target document.
func (f *HeuristicFiller) firstMatch(ctx context.Context, target *Target, selectors []string) (string, bool, error) {
	for _, sel := range selectors {
		found, err := target.Doc.Exists(ctx, sel)
		if err != nil {
			return "", false, err
		}
		if found {
			return sel, true, nil
		}
	}
	return "", false, nil
}

// answerSelectors builds the probes for a screening question keyed by its
// normalized slug.
func answerSelectors(slug string) []string {
	return []string{
		fmt.Sprintf("textarea[name*='%s']", slug),
		fmt.Sprintf("input[name*='%s']", slug),
		fmt.Sprintf("select[name*='%s']", slug),
	}
}

func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func lastName(full string) string {
	parts := strings.Fields(full)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}
