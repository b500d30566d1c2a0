package forms

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// ClickSubmitter submits the form by clicking its submit control and
// observing the immediate navigation response.
type ClickSubmitter struct {
	cfg *config.Config
	log *zap.Logger
}

// NewClickSubmitter creates a ClickSubmitter.
func NewClickSubmitter(cfg *config.Config, log *zap.Logger) *ClickSubmitter {
	return &ClickSubmitter{cfg: cfg, log: log}
}

// Submit clicks the submit control found during fill, waits for the page to
// settle, and records the top-level URL before and after. The URL
// comparison always reads the top-level page, even when the form lives in
// a frame.
func (s *ClickSubmitter) Submit(ctx context.Context, target *Target, fill types.FillResult) (types.SubmitResult, error) {
	result := types.SubmitResult{}

	before, err := target.Page.URL(ctx)
	if err != nil {
		return result, err
	}
	result.URLBefore = before

	sel := fill.SubmitSelector
	if sel == "" {
		found := false
		for _, candidate := range submitSelectors {
			ok, err := target.Doc.Exists(ctx, candidate)
			if err != nil {
				return result, err
			}
			if ok {
				sel = candidate
				found = true
				break
			}
		}
		if !found {
			return result, ErrFormNotFound
		}
	}

	if err := target.Doc.Click(ctx, sel); err != nil {
		return result, err
	}
	result.Clicked = true

	select {
	case <-time.After(s.cfg.SettleDelay()):
	case <-ctx.Done():
		return result, ctx.Err()
	}

	after, err := target.Page.URL(ctx)
	if err != nil {
		// The click landed; losing the post-click URL degrades the verdict
		// but is not a submission failure.
		s.log.Debug("failed to read post-submit URL", zap.Error(err))
		return result, nil
	}
	result.URLAfter = after
	result.URLChanged = after != before

	s.log.Info("submit clicked",
		zap.String("selector", sel),
		zap.Bool("url_changed", result.URLChanged))
	return result, nil
}
