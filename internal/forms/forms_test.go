package forms

import (
	"context"

	"github.com/jonathan/auto-apply/internal/browser"
)

// fakeDoc is a scriptable Document: selectors present, values typed into
// them, and a fixed URL and HTML body.
type fakeDoc struct {
	url       string
	html      string
	selectors map[string]bool
	values    map[string]string
	clicks    []string
}

func newFakeDoc(selectors ...string) *fakeDoc {
	d := &fakeDoc{
		selectors: map[string]bool{},
		values:    map[string]string{},
	}
	for _, sel := range selectors {
		d.selectors[sel] = true
	}
	return d
}

func (d *fakeDoc) URL(ctx context.Context) (string, error)  { return d.url, nil }
func (d *fakeDoc) HTML(ctx context.Context) (string, error) { return d.html, nil }
func (d *fakeDoc) Exists(ctx context.Context, selector string) (bool, error) {
	return d.selectors[selector], nil
}
func (d *fakeDoc) Value(ctx context.Context, selector string) (string, error) {
	return d.values[selector], nil
}
func (d *fakeDoc) Click(ctx context.Context, selector string) error {
	d.clicks = append(d.clicks, selector)
	return nil
}
func (d *fakeDoc) Clear(ctx context.Context, selector string) error {
	d.values[selector] = ""
	return nil
}
func (d *fakeDoc) Type(ctx context.Context, selector, text string) error {
	d.values[selector] += text
	return nil
}
func (d *fakeDoc) SetFile(ctx context.Context, selector, path string) error {
	d.values[selector] = path
	return nil
}

// fakeFormSession exposes a page plus named frames.
type fakeFormSession struct {
	page   *fakeDoc
	frames []browser.FrameInfo
	docs   map[string]*fakeDoc

	// onClick lets tests mutate page state when the apply button is clicked.
	onClick func()
}

func (s *fakeFormSession) Navigate(ctx context.Context, url string) error { return nil }
func (s *fakeFormSession) WaitLoaded(ctx context.Context) error           { return nil }
func (s *fakeFormSession) Page() browser.Document {
	if s.onClick == nil {
		return s.page
	}
	return &clickHookDoc{fakeDoc: s.page, onClick: s.onClick}
}
func (s *fakeFormSession) Frames(ctx context.Context) ([]browser.FrameInfo, error) {
	return s.frames, nil
}
func (s *fakeFormSession) Frame(info browser.FrameInfo) browser.Document {
	return s.docs[info.ID]
}
func (s *fakeFormSession) Screenshot(ctx context.Context) ([]byte, error) { return nil, nil }
func (s *fakeFormSession) UsedProxy() bool                                { return false }
func (s *fakeFormSession) Close() error                                   { return nil }

type clickHookDoc struct {
	*fakeDoc
	onClick func()
}

func (d *clickHookDoc) Click(ctx context.Context, selector string) error {
	if err := d.fakeDoc.Click(ctx, selector); err != nil {
		return err
	}
	d.onClick()
	return nil
}
