package verification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// Message is a mailbox message relevant to a verification search.
type Message struct {
	Subject    string
	Body       string
	ReceivedAt time.Time
}

// MailboxSearcher reads the candidate's mailbox. A nil searcher means no
// mailbox is linked and challenges cannot be resolved.
type MailboxSearcher interface {
	// Search returns messages matching the query received at or after since,
	// newest first.
	Search(ctx context.Context, query string, since time.Time) ([]Message, error)
}

// Poller resolves email-verification challenges by polling the mailbox at a
// fixed interval under a wall-clock ceiling.
type Poller struct {
	searcher MailboxSearcher
	cfg      *config.Config
	log      *zap.Logger
}

// NewPoller creates a Poller. The searcher may be nil.
func NewPoller(searcher MailboxSearcher, cfg *config.Config, log *zap.Logger) *Poller {
	return &Poller{searcher: searcher, cfg: cfg, log: log}
}

// Resolve attempts to clear a detected challenge. Without a linked mailbox
// it returns immediately with Resolved false; the caller proceeds and the
// outcome is recorded as unresolved rather than blocking the run.
//
// With a mailbox, it polls until a code or link turns up or the ceiling
// expires. A found code is typed into the challenge input on doc, the
// document hosting the challenge (the form's frame when embedded), and
// confirmed; a found link is navigated to in the same session.
func (p *Poller) Resolve(ctx context.Context, session browser.Session, doc browser.Document, challenge Challenge, since time.Time) (types.VerificationOutcome, error) {
	outcome := types.VerificationOutcome{Detected: challenge.Present}
	if !challenge.Present {
		return outcome, nil
	}

	if p.searcher == nil {
		p.log.Warn("verification challenge detected but no mailbox is linked")
		return outcome, nil
	}

	start := time.Now()
	deadline := start.Add(p.cfg.VerifyCeiling())
	ticker := time.NewTicker(p.cfg.VerifyInterval())
	defer ticker.Stop()

	for {
		outcome.Attempts++
		messages, err := p.searcher.Search(ctx, verificationQuery, since)
		if err != nil {
			p.log.Warn("mailbox search failed", zap.Error(err))
		}

		for _, msg := range messages {
			if challenge.WantsCode {
				if code := ExtractCode(msg.Body); code != "" {
					outcome.CodeFound = true
					outcome.ElapsedMS = time.Since(start).Milliseconds()
					err := p.enterCode(ctx, doc, challenge, code)
					outcome.Resolved = err == nil
					return outcome, err
				}
			}
			if link := ExtractLink(msg.Body); link != "" {
				outcome.LinkFound = true
				outcome.ElapsedMS = time.Since(start).Milliseconds()
				err := session.Navigate(ctx, link)
				outcome.Resolved = err == nil
				return outcome, err
			}
		}

		if time.Now().After(deadline) {
			outcome.ElapsedMS = time.Since(start).Milliseconds()
			p.log.Warn("verification polling ceiling reached",
				zap.Int("attempts", outcome.Attempts))
			return outcome, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			outcome.ElapsedMS = time.Since(start).Milliseconds()
			return outcome, ctx.Err()
		}
	}
}

// verificationQuery is the mailbox search used to find challenge emails.
const verificationQuery = `subject:(verify OR verification OR confirm) newer_than:1d`

func (p *Poller) enterCode(ctx context.Context, doc browser.Document, challenge Challenge, code string) error {
	if err := doc.Clear(ctx, challenge.CodeSelector); err != nil {
		return err
	}
	if err := doc.Type(ctx, challenge.CodeSelector, code); err != nil {
		return err
	}
	if challenge.ConfirmSelector != "" {
		return doc.Click(ctx, challenge.ConfirmSelector)
	}
	return nil
}
