package browser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
)

// LaunchOptions control one session launch attempt.
type LaunchOptions struct {
	// Seed keeps the synthetic fingerprint stable across attempts for the
	// same application.
	Seed     string
	Headless bool
	// Proxy is the stealth-path proxy. Ignored when SkipProxy is set.
	Proxy config.ProxyConfig
	// SkipProxy launches on the direct path.
	SkipProxy bool
}

// Launcher starts browser sessions. Implemented by ChromeLauncher; faked in
// tests.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// ChromeLauncher launches headless Chrome sessions via chromedp.
// Requires Chrome/Chromium to be installed on the system.
type ChromeLauncher struct {
	log *zap.Logger
}

// NewChromeLauncher creates a ChromeLauncher.
func NewChromeLauncher(log *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{log: log}
}

// Launch starts a Chrome instance with the seed-derived fingerprint and, on
// the stealth path, the configured proxy.
func (l *ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	fp := FingerprintForSeed(opts.Seed)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", fp.Locale),
		chromedp.UserAgent(fp.UserAgent),
		chromedp.WindowSize(fp.Width, fp.Height),
	)

	usedProxy := false
	if !opts.SkipProxy && opts.Proxy.Configured() {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxyURL(opts.Proxy)))
		usedProxy = true
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces proxy and launch failures here
	// instead of on first navigation. The timezone override has to be set
	// per target, so it rides along instead of being an allocator flag.
	if err := chromedp.Run(browserCtx,
		emulation.SetTimezoneOverride(fp.Timezone),
	); err != nil {
		browserCancel()
		allocCancel()
		return nil, &LaunchError{Message: "failed to start browser", Cause: err}
	}

	l.log.Debug("browser session launched",
		zap.Bool("proxied", usedProxy),
		zap.String("user_agent", fp.UserAgent))

	return &chromeSession{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		usedProxy:   usedProxy,
	}, nil
}

// proxyURL folds credentials into the proxy server address when present.
func proxyURL(p config.ProxyConfig) string {
	if p.Username == "" {
		return p.Server
	}
	parsed, err := url.Parse(p.Server)
	if err != nil {
		return p.Server
	}
	parsed.User = url.UserPassword(p.Username, p.Password)
	return parsed.String()
}

// chromeSession implements Session over a chromedp browser context.
type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	usedProxy   bool
	closed      bool
}

func (s *chromeSession) Navigate(ctx context.Context, targetURL string) error {
	runCtx, cancel := boundContext(s.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(targetURL)); err != nil {
		return &NavigationError{URL: targetURL, Cause: err}
	}
	return nil
}

func (s *chromeSession) WaitLoaded(ctx context.Context) error {
	runCtx, cancel := boundContext(s.ctx, ctx)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.WaitReady("body"))
}

func (s *chromeSession) Page() Document {
	return &chromeDocument{ctx: s.ctx}
}

// Frames walks the CDP frame tree and returns every child frame attached to
// the top-level page.
func (s *chromeSession) Frames(ctx context.Context) ([]FrameInfo, error) {
	runCtx, cancel := boundContext(s.ctx, ctx)
	defer cancel()

	var frames []FrameInfo
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		collectFrames(tree, &frames, true)
		return nil
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames: %w", err)
	}
	return frames, nil
}

// collectFrames flattens the frame tree, skipping the root page itself.
func collectFrames(tree *page.FrameTree, out *[]FrameInfo, root bool) {
	if tree == nil {
		return
	}
	if !root && tree.Frame != nil {
		*out = append(*out, FrameInfo{
			ID:  tree.Frame.ID.String(),
			URL: tree.Frame.URL,
		})
	}
	for _, child := range tree.ChildFrames {
		collectFrames(child, out, false)
	}
}

// Frame returns a document scoped to the frame's target. Out-of-process
// frames get their own target context; interaction then behaves as if the
// frame were a page of its own.
func (s *chromeSession) Frame(info FrameInfo) Document {
	frameCtx, cancel := chromedp.NewContext(s.ctx, chromedp.WithTargetID(target.ID(info.ID)))
	return &chromeDocument{ctx: frameCtx, cancel: cancel}
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := boundContext(s.ctx, ctx)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *chromeSession) UsedProxy() bool { return s.usedProxy }

func (s *chromeSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	s.allocCancel()
	return nil
}

// chromeDocument implements Document over a chromedp context (page or frame).
type chromeDocument struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (d *chromeDocument) URL(ctx context.Context) (string, error) {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	var loc string
	if err := chromedp.Run(runCtx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

func (d *chromeDocument) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to read document HTML: %w", err)
	}
	return html, nil
}

func (d *chromeDocument) Exists(ctx context.Context, selector string) (bool, error) {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", strconv.Quote(selector))
	if err := chromedp.Run(runCtx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("failed to query selector %q: %w", selector, err)
	}
	return found, nil
}

func (d *chromeDocument) Value(ctx context.Context, selector string) (string, error) {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	var value string
	if err := chromedp.Run(runCtx, chromedp.Value(selector, &value, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read value of %q: %w", selector, err)
	}
	return value, nil
}

func (d *chromeDocument) Click(ctx context.Context, selector string) error {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}
	return nil
}

func (d *chromeDocument) Clear(ctx context.Context, selector string) error {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.SetValue(selector, "", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to clear %q: %w", selector, err)
	}
	return nil
}

func (d *chromeDocument) Type(ctx context.Context, selector, text string) error {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to type into %q: %w", selector, err)
	}
	return nil
}

func (d *chromeDocument) SetFile(ctx context.Context, selector, path string) error {
	runCtx, cancel := boundContext(d.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to attach file to %q: %w", selector, err)
	}
	return nil
}

// boundContext derives a run context from the chromedp context, carrying
// over the caller's deadline. chromedp actions must run on the browser
// context chain, so the caller's context cannot be used directly.
func boundContext(chromeCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := callerCtx.Deadline(); ok {
		return context.WithDeadline(chromeCtx, deadline)
	}
	return context.WithCancel(chromeCtx)
}
