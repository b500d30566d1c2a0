// Package browser provides the browser-session capability layer: an
// abstract Session/Document interface pair, a chromedp-backed adapter, and
// the two-path session acquirer.
package browser

import "context"

// Document is a handle to a page or an embedded frame. Form interaction
// always targets a Document; post-submission checks may read a different
// Document (the top-level page) than the one hosting the form.
type Document interface {
	// URL returns the document's current location.
	URL(ctx context.Context) (string, error)
	// HTML returns the rendered outer HTML of the document.
	HTML(ctx context.Context) (string, error)
	// Exists reports whether a visible element matches the selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// Value returns the current value of the matched input.
	Value(ctx context.Context, selector string) (string, error)
	// Click clicks the first visible element matching the selector.
	Click(ctx context.Context, selector string) error
	// Clear empties the value of the matched input.
	Clear(ctx context.Context, selector string) error
	// Type sends keystrokes to the matched input.
	Type(ctx context.Context, selector, text string) error
	// SetFile attaches a local file to the matched file input.
	SetFile(ctx context.Context, selector, path string) error
}

// FrameInfo identifies an embedded frame by target ID and URL.
type FrameInfo struct {
	ID  string
	URL string
}

// Session is an acquired browser session. Exclusively owned by one
// orchestration run; the owner must call Close on every exit path.
type Session interface {
	// Navigate drives the top-level page to the URL. This is a primary
	// signal: a timeout here is fatal to the attempt.
	Navigate(ctx context.Context, url string) error
	// WaitLoaded waits for the page's loaded signal. This is a secondary
	// signal: callers treat a timeout as non-fatal and proceed.
	WaitLoaded(ctx context.Context) error
	// Page returns the top-level document.
	Page() Document
	// Frames lists embedded frames currently attached to the page.
	Frames(ctx context.Context) ([]FrameInfo, error)
	// Frame returns a document handle scoped to the given frame.
	Frame(info FrameInfo) Document
	// Screenshot captures the visible viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// UsedProxy reports whether the stealth/proxied path launched this session.
	UsedProxy() bool
	// Close releases the underlying browser resources. Safe to call once.
	Close() error
}
