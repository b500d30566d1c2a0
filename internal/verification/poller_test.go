package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
)

type fakeDoc struct {
	typed   map[string]string
	clicked []string
}

func (d *fakeDoc) URL(ctx context.Context) (string, error)                   { return "", nil }
func (d *fakeDoc) HTML(ctx context.Context) (string, error)                  { return "", nil }
func (d *fakeDoc) Exists(ctx context.Context, selector string) (bool, error) { return false, nil }
func (d *fakeDoc) Value(ctx context.Context, selector string) (string, error) {
	return d.typed[selector], nil
}
func (d *fakeDoc) Click(ctx context.Context, selector string) error {
	d.clicked = append(d.clicked, selector)
	return nil
}
func (d *fakeDoc) Clear(ctx context.Context, selector string) error {
	if d.typed == nil {
		d.typed = map[string]string{}
	}
	d.typed[selector] = ""
	return nil
}
func (d *fakeDoc) Type(ctx context.Context, selector, text string) error {
	if d.typed == nil {
		d.typed = map[string]string{}
	}
	d.typed[selector] += text
	return nil
}
func (d *fakeDoc) SetFile(ctx context.Context, selector, path string) error { return nil }

type fakeSession struct {
	doc       *fakeDoc
	navigated []string
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.navigated = append(s.navigated, url)
	return nil
}
func (s *fakeSession) WaitLoaded(ctx context.Context) error { return nil }
func (s *fakeSession) Page() browser.Document               { return s.doc }
func (s *fakeSession) Frames(ctx context.Context) ([]browser.FrameInfo, error) {
	return nil, nil
}
func (s *fakeSession) Frame(info browser.FrameInfo) browser.Document { return nil }
func (s *fakeSession) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, nil
}
func (s *fakeSession) UsedProxy() bool { return false }
func (s *fakeSession) Close() error    { return nil }

type fakeSearcher struct {
	messages []Message
	calls    int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, since time.Time) ([]Message, error) {
	f.calls++
	return f.messages, nil
}

func pollerConfig() *config.Config {
	cfg := config.Defaults()
	cfg.VerifyIntervalSec = 1
	cfg.VerifyCeilingSec = 0
	return &cfg
}

func TestResolve_NoChallengeDetected(t *testing.T) {
	poller := NewPoller(&fakeSearcher{}, pollerConfig(), zap.NewNop())
	outcome, err := poller.Resolve(context.Background(), &fakeSession{}, &fakeDoc{}, Challenge{}, time.Now())
	require.NoError(t, err)
	assert.False(t, outcome.Detected)
	assert.False(t, outcome.Resolved)
}

func TestResolve_NoMailboxIsNonBlocking(t *testing.T) {
	poller := NewPoller(nil, pollerConfig(), zap.NewNop())

	start := time.Now()
	outcome, err := poller.Resolve(context.Background(), &fakeSession{}, &fakeDoc{}, Challenge{Present: true, WantsCode: true}, time.Now())
	require.NoError(t, err)

	assert.True(t, outcome.Detected)
	assert.False(t, outcome.Resolved)
	assert.Less(t, time.Since(start), time.Second, "must return immediately without a mailbox")
}

func TestResolve_CodeEnteredAndConfirmed(t *testing.T) {
	searcher := &fakeSearcher{messages: []Message{
		{Subject: "Verify your email", Body: "Your verification code is 482913", ReceivedAt: time.Now()},
	}}
	session := &fakeSession{doc: &fakeDoc{}}
	challenge := Challenge{
		Present:         true,
		WantsCode:       true,
		CodeSelector:    "input[name*='code']",
		ConfirmSelector: "button[type='submit']",
	}

	cfg := pollerConfig()
	cfg.VerifyCeilingSec = 60
	poller := NewPoller(searcher, cfg, zap.NewNop())

	outcome, err := poller.Resolve(context.Background(), session, session.doc, challenge, time.Now())
	require.NoError(t, err)

	assert.True(t, outcome.Resolved)
	assert.True(t, outcome.CodeFound)
	assert.Equal(t, "482913", session.doc.typed["input[name*='code']"])
	assert.Equal(t, []string{"button[type='submit']"}, session.doc.clicked)
}

func TestResolve_CodeEnteredIntoChallengeDocument(t *testing.T) {
	searcher := &fakeSearcher{messages: []Message{
		{Subject: "Verify your email", Body: "Your verification code is 771205", ReceivedAt: time.Now()},
	}}
	// The challenge lives in an embedded frame; the top-level page must stay
	// untouched.
	frameDoc := &fakeDoc{}
	session := &fakeSession{doc: &fakeDoc{}}
	challenge := Challenge{
		Present:      true,
		WantsCode:    true,
		CodeSelector: "input[name*='code']",
	}

	cfg := pollerConfig()
	cfg.VerifyCeilingSec = 60
	poller := NewPoller(searcher, cfg, zap.NewNop())

	outcome, err := poller.Resolve(context.Background(), session, frameDoc, challenge, time.Now())
	require.NoError(t, err)

	assert.True(t, outcome.Resolved)
	assert.Equal(t, "771205", frameDoc.typed["input[name*='code']"])
	assert.Empty(t, session.doc.typed, "the top-level page receives no input")
}

func TestResolve_LinkNavigated(t *testing.T) {
	searcher := &fakeSearcher{messages: []Message{
		{Subject: "Confirm your application", Body: "Visit https://ats.example.com/confirm?token=xyz", ReceivedAt: time.Now()},
	}}
	session := &fakeSession{doc: &fakeDoc{}}

	cfg := pollerConfig()
	cfg.VerifyCeilingSec = 60
	poller := NewPoller(searcher, cfg, zap.NewNop())

	outcome, err := poller.Resolve(context.Background(), session, session.doc, Challenge{Present: true}, time.Now())
	require.NoError(t, err)

	assert.True(t, outcome.Resolved)
	assert.True(t, outcome.LinkFound)
	assert.Equal(t, []string{"https://ats.example.com/confirm?token=xyz"}, session.navigated)
}

func TestResolve_CeilingReachedUnresolved(t *testing.T) {
	searcher := &fakeSearcher{}
	poller := NewPoller(searcher, pollerConfig(), zap.NewNop())

	outcome, err := poller.Resolve(context.Background(), &fakeSession{}, &fakeDoc{}, Challenge{Present: true, WantsCode: true}, time.Now())
	require.NoError(t, err)

	assert.True(t, outcome.Detected)
	assert.False(t, outcome.Resolved)
	assert.GreaterOrEqual(t, outcome.Attempts, 1)
	assert.GreaterOrEqual(t, searcher.calls, 1)
}
