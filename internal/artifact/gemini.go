package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/jonathan/auto-apply/internal/types"
)

const generatorModel = "gemini-1.5-flash"

// GeminiGenerator produces tailored resumes with Google Gemini and writes
// them to the artifact directory.
type GeminiGenerator struct {
	client *genai.Client
	outDir string
	log    *zap.Logger
}

// NewGeminiGenerator creates a GeminiGenerator.
func NewGeminiGenerator(ctx context.Context, apiKey, outDir string, log *zap.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, outDir: outDir, log: log}, nil
}

// Generate produces a tailored document for the job and returns the path of
// the written file.
func (g *GeminiGenerator) Generate(ctx context.Context, profile *types.UserProfile, job types.JobContext) (string, error) {
	model := g.client.GenerativeModel(generatorModel)
	model.SetTemperature(0.1) // Low temperature for consistent output

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(profile, job)))
	if err != nil {
		return "", fmt.Errorf("failed to generate document: %w", err)
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	name := fmt.Sprintf("resume_%s_%d.txt", sanitize(job.Company), time.Now().Unix())
	path := filepath.Join(g.outDir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("failed to write generated document: %w", err)
	}

	g.log.Info("document generated",
		zap.String("company", job.Company),
		zap.String("path", path))
	return path, nil
}

// Close releases resources held by the client.
func (g *GeminiGenerator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func buildPrompt(profile *types.UserProfile, job types.JobContext) string {
	var b strings.Builder
	b.WriteString("Write a tailored one-page resume in plain text for the following candidate and role.\n\n")
	fmt.Fprintf(&b, "Candidate: %s (%s)\n", profile.FullName, profile.Email)
	if profile.Location != "" {
		fmt.Fprintf(&b, "Location: %s\n", profile.Location)
	}
	if profile.LinkedIn != "" {
		fmt.Fprintf(&b, "LinkedIn: %s\n", profile.LinkedIn)
	}
	fmt.Fprintf(&b, "\nRole: %s at %s\n", job.Title, job.Company)
	if job.Description != "" {
		fmt.Fprintf(&b, "\nJob description:\n%s\n", job.Description)
	}
	b.WriteString("\nReturn only the resume text, no commentary.")
	return b.String()
}

// extractTextFromResponse extracts text from a Gemini API response.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// sanitize makes a company name safe for a file name.
func sanitize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}
