package verification

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSearcher implements MailboxSearcher against the Gmail API.
type GmailSearcher struct {
	service *gmail.Service
}

// NewGmailSearcher creates a GmailSearcher from client options, typically an
// OAuth HTTP client carrying the user's token.
func NewGmailSearcher(ctx context.Context, opts ...option.ClientOption) (*GmailSearcher, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GmailSearcher{service: service}, nil
}

// Search lists messages matching the query, expands each to its full
// payload, and filters by the received-at cutoff.
func (g *GmailSearcher) Search(ctx context.Context, query string, since time.Time) ([]Message, error) {
	resp, err := g.service.Users.Messages.List("me").Q(query).MaxResults(20).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []Message
	for _, header := range resp.Messages {
		msg, err := g.service.Users.Messages.Get("me", header.Id).Context(ctx).Do()
		if err != nil {
			continue
		}
		received := time.UnixMilli(msg.InternalDate)
		if received.Before(since) {
			continue
		}
		messages = append(messages, Message{
			Subject:    headerValue(msg, "Subject"),
			Body:       messageBody(msg),
			ReceivedAt: received,
		})
	}
	return messages, nil
}

func headerValue(msg *gmail.Message, name string) string {
	if msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

// messageBody prefers the top-level body, then text/plain parts, then
// text/html parts.
func messageBody(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if msg.Payload.Body != nil && msg.Payload.Body.Data != "" {
		d, _ := base64.URLEncoding.DecodeString(msg.Payload.Body.Data)
		return string(d)
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	for _, part := range msg.Payload.Parts {
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			d, _ := base64.URLEncoding.DecodeString(part.Body.Data)
			return string(d)
		}
	}
	return ""
}
