package forms

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
)

// Target is a located application form: the document hosting it, the
// selector that matched, and the platform it belongs to.
type Target struct {
	// Doc hosts the form. Either the top-level page or an embedded frame.
	Doc browser.Document
	// Page is always the top-level page, used for post-submission URL checks
	// even when the form lives in a frame.
	Page         browser.Document
	FormSelector string
	Platform     Platform
	InFrame      bool
	FrameURL     string
}

// Locator finds the application form for a job posting.
type Locator struct {
	cfg *config.Config
	log *zap.Logger
}

// NewLocator creates a Locator.
func NewLocator(cfg *config.Config, log *zap.Logger) *Locator {
	return &Locator{cfg: cfg, log: log}
}

// Locate searches for the application form. The search order is top-level
// page, then embedded frames matching platform hints, then one click on an
// apply button followed by a re-scan of both. Returns ErrFormNotFound when
// all three passes come up empty.
func (l *Locator) Locate(ctx context.Context, session browser.Session, jobURL string) (*Target, error) {
	platform := DetectPlatform(jobURL)
	page := session.Page()

	if target, ok, err := l.scan(ctx, session, page, platform); err != nil {
		return nil, err
	} else if ok {
		return target, nil
	}

	clicked, err := l.clickApply(ctx, page, platform)
	if err != nil {
		return nil, err
	}
	if !clicked {
		return nil, ErrFormNotFound
	}

	l.log.Debug("clicked apply button, re-scanning", zap.String("url", jobURL))
	select {
	case <-time.After(l.cfg.SettleDelay()):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if target, ok, err := l.scan(ctx, session, page, platform); err != nil {
		return nil, err
	} else if ok {
		return target, nil
	}
	return nil, ErrFormNotFound
}

// scan checks the top-level page and then candidate frames for a form
// container.
func (l *Locator) scan(ctx context.Context, session browser.Session, page browser.Document, platform Platform) (*Target, bool, error) {
	selectors := PlatformFormSelectors(platform)

	for _, sel := range selectors {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			return nil, false, err
		}
		if found {
			return &Target{
				Doc:          page,
				Page:         page,
				FormSelector: sel,
				Platform:     platform,
			}, true, nil
		}
	}

	frames, err := session.Frames(ctx)
	if err != nil {
		return nil, false, err
	}
	hints := PlatformFrameHints(platform)

	for _, frame := range frames {
		if !frameMatches(frame.URL, hints) {
			continue
		}
		doc := session.Frame(frame)
		for _, sel := range selectors {
			found, err := doc.Exists(ctx, sel)
			if err != nil {
				// A frame can detach between listing and querying. Skip it
				// and keep scanning the rest.
				l.log.Debug("frame query failed, skipping",
					zap.String("frame_url", frame.URL),
					zap.Error(err))
				break
			}
			if found {
				return &Target{
					Doc:          doc,
					Page:         page,
					FormSelector: sel,
					Platform:     platform,
					InFrame:      true,
					FrameURL:     frame.URL,
				}, true, nil
			}
		}
	}

	return nil, false, nil
}

// clickApply clicks the first matching apply button. At most one click per
// location attempt.
func (l *Locator) clickApply(ctx context.Context, page browser.Document, platform Platform) (bool, error) {
	for _, sel := range PlatformApplyButtonSelectors(platform) {
		found, err := page.Exists(ctx, sel)
		if err != nil {
			return false, err
		}
		if !found {
			continue
		}
		if err := page.Click(ctx, sel); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

func frameMatches(frameURL string, hints []string) bool {
	lower := strings.ToLower(frameURL)
	for _, hint := range hints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
