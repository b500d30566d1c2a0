package forms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
)

func testLocator() *Locator {
	cfg := config.Defaults()
	cfg.SettleDelayMs = 0
	return NewLocator(&cfg, zap.NewNop())
}

func TestLocate_TopLevelForm(t *testing.T) {
	page := newFakeDoc("#application-form")
	session := &fakeFormSession{page: page}

	target, err := testLocator().Locate(context.Background(), session, "https://boards.greenhouse.io/acme/jobs/1")
	require.NoError(t, err)

	assert.Equal(t, "#application-form", target.FormSelector)
	assert.Equal(t, PlatformGreenhouse, target.Platform)
	assert.False(t, target.InFrame)
}

func TestLocate_FormInFrame(t *testing.T) {
	page := newFakeDoc()
	frameDoc := newFakeDoc("#application_form")
	session := &fakeFormSession{
		page: page,
		frames: []browser.FrameInfo{
			{ID: "ad", URL: "https://ads.example.com/banner"},
			{ID: "gh", URL: "https://boards.greenhouse.io/embed/job_app?for=acme"},
		},
		docs: map[string]*fakeDoc{
			"ad": newFakeDoc(),
			"gh": frameDoc,
		},
	}

	target, err := testLocator().Locate(context.Background(), session, "https://boards.greenhouse.io/acme/jobs/1")
	require.NoError(t, err)

	assert.True(t, target.InFrame)
	assert.Equal(t, "#application_form", target.FormSelector)
	assert.Contains(t, target.FrameURL, "greenhouse.io")
}

func TestLocate_ClicksApplyThenFindsForm(t *testing.T) {
	page := newFakeDoc("#apply_button")
	session := &fakeFormSession{page: page}
	session.onClick = func() {
		page.selectors["#application-form"] = true
	}

	target, err := testLocator().Locate(context.Background(), session, "https://boards.greenhouse.io/acme/jobs/1")
	require.NoError(t, err)

	assert.Equal(t, "#application-form", target.FormSelector)
	require.Len(t, page.clicks, 1, "apply button is clicked at most once")
	assert.Equal(t, "#apply_button", page.clicks[0])
}

func TestLocate_NothingFound(t *testing.T) {
	session := &fakeFormSession{page: newFakeDoc()}

	_, err := testLocator().Locate(context.Background(), session, "https://acme.com/careers/1")
	assert.ErrorIs(t, err, ErrFormNotFound)
}
