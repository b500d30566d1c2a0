package browser

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
)

// Acquirer obtains a ready-to-use session for a target URL. It owns the
// stealth-first, direct-fallback policy; the returned session is never
// closed by the acquirer.
type Acquirer struct {
	launcher Launcher
	cfg      *config.Config
	log      *zap.Logger
}

// NewAcquirer creates an Acquirer over the given launcher.
func NewAcquirer(launcher Launcher, cfg *config.Config, log *zap.Logger) *Acquirer {
	return &Acquirer{launcher: launcher, cfg: cfg, log: log}
}

// Acquire launches a session and navigates it to targetURL.
//
// The first attempt goes through the proxied path when a proxy is
// configured. If that attempt fails with a recognized proxy-rejection
// signature, exactly one more attempt is made on the direct path with the
// same seed. Any other failure, including a direct-path failure, is final.
//
// On success the caller owns the session and must close it. On failure the
// acquirer closes whatever it launched before returning.
func (a *Acquirer) Acquire(ctx context.Context, targetURL, seed string) (Session, error) {
	opts := LaunchOptions{
		Seed:     seed,
		Headless: a.cfg.Headless,
		Proxy:    a.cfg.Proxy,
	}

	session, err := a.attempt(ctx, targetURL, opts)
	if err == nil {
		return session, nil
	}

	if !opts.SkipProxy && opts.Proxy.Configured() && IsProxyRejected(err) {
		a.log.Warn("proxied path rejected, retrying direct",
			zap.String("url", targetURL),
			zap.Error(err))
		opts.SkipProxy = true
		return a.attempt(ctx, targetURL, opts)
	}

	return nil, err
}

// attempt performs one launch-and-navigate cycle. Cleans up its own session
// on every failure path.
func (a *Acquirer) attempt(ctx context.Context, targetURL string, opts LaunchOptions) (Session, error) {
	session, err := a.launcher.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}

	navCtx, cancel := context.WithTimeout(ctx, a.cfg.NavigationTimeout())
	err = session.Navigate(navCtx, targetURL)
	cancel()
	if err != nil {
		session.Close()
		return nil, err
	}

	// Load settle is a secondary signal. Slow pages are common on heavily
	// scripted application forms, so a timeout here does not fail the
	// acquisition.
	settleCtx, cancel := context.WithTimeout(ctx, a.cfg.LoadSettleTimeout())
	if err := session.WaitLoaded(settleCtx); err != nil {
		a.log.Debug("page load settle timed out, continuing",
			zap.String("url", targetURL))
	}
	cancel()

	select {
	case <-time.After(a.cfg.SettleDelay()):
	case <-ctx.Done():
		session.Close()
		return nil, ctx.Err()
	}

	return session, nil
}
