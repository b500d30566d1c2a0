package forms

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// successPhrases indicate the platform acknowledged the submission.
var successPhrases = []string{
	"thank you for applying",
	"thank you for your application",
	"application submitted",
	"application received",
	"application has been submitted",
	"we have received your application",
	"your application was sent",
	"successfully submitted",
}

// confirmationPathHints are URL fragments platforms use on their
// post-submission pages.
var confirmationPathHints = []string{
	"confirmation",
	"thank", // thanks, thank-you, thankyou
	"submitted",
	"success",
}

// errorSelectors locate inline validation errors left on the page after a
// rejected submission.
var errorSelectors = []string{
	"[role='alert']",
	".field-error",
	".error-message",
	".helper-text--error",
	"[class*='error']",
}

// HeuristicValidator scores submission outcomes from the page state:
// acknowledgment text, URL movement, form disappearance, and visible
// validation errors.
type HeuristicValidator struct {
	cfg *config.Config
	log *zap.Logger
}

// NewHeuristicValidator creates a HeuristicValidator.
func NewHeuristicValidator(cfg *config.Config, log *zap.Logger) *HeuristicValidator {
	return &HeuristicValidator{cfg: cfg, log: log}
}

// Validate reads the top-level page and scores the submission. Confidence
// is 0 to 100; the recommendation follows the configured accept and
// uncertain thresholds.
func (v *HeuristicValidator) Validate(ctx context.Context, target *Target, submit types.SubmitResult) (types.ValidationVerdict, error) {
	verdict := types.ValidationVerdict{}

	html, err := target.Page.HTML(ctx)
	if err != nil {
		return verdict, err
	}

	confidence := 0
	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if parseErr != nil {
		v.log.Debug("failed to parse page for validation", zap.Error(parseErr))
	}

	bodyText := ""
	if doc != nil {
		bodyText = strings.ToLower(doc.Find("body").Text())
	} else {
		bodyText = strings.ToLower(html)
	}

	for _, phrase := range successPhrases {
		if strings.Contains(bodyText, phrase) {
			confidence += 60
			break
		}
	}

	if submit.URLChanged {
		lowerAfter := strings.ToLower(submit.URLAfter)
		hinted := false
		for _, hint := range confirmationPathHints {
			if strings.Contains(lowerAfter, hint) {
				hinted = true
				break
			}
		}
		if hinted {
			confidence += 35
		} else {
			confidence += 25
		}
	}

	formGone, err := target.Doc.Exists(ctx, target.FormSelector)
	if err == nil && !formGone {
		confidence += 10
	}

	if doc != nil {
		verdict.Issues = collectErrors(doc)
	}
	if len(verdict.Issues) > 0 {
		confidence -= 20 * len(verdict.Issues)
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	verdict.Confidence = confidence

	switch {
	case confidence >= v.cfg.AcceptConfidence:
		verdict.Recommendation = types.RecommendAccept
	case confidence >= v.cfg.UncertainConfidence:
		verdict.Recommendation = types.RecommendUncertain
	default:
		verdict.Recommendation = types.RecommendRetry
	}

	v.log.Info("submission validated",
		zap.Int("confidence", confidence),
		zap.String("recommendation", string(verdict.Recommendation)),
		zap.Int("issues", len(verdict.Issues)))
	return verdict, nil
}

// collectErrors gathers visible inline error texts, deduplicated.
func collectErrors(doc *goquery.Document) []string {
	seen := map[string]bool{}
	var issues []string
	for _, sel := range errorSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if text == "" || len(text) > 200 || seen[text] {
				return
			}
			seen[text] = true
			issues = append(issues, text)
		})
	}
	return issues
}
