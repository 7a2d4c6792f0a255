package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/eleven-am/interview-backend/internal/shared"
	"google.golang.org/genai"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.5
)

var ErrEmptyResponse = errors.New("gemini returned an empty response")

// ContentGenerator is the part of the genai Models service the generator
// needs. *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	Model       string
	Temperature float32
	Backoff     shared.BackoffConfig
}

// Generator produces interviewer turns and the final assessment with Gemini.
type Generator struct {
	models ContentGenerator
	cfg    Config
	logger *slog.Logger
}

func New(models ContentGenerator, cfg Config, logger *slog.Logger) *Generator {
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	return &Generator{
		models: models,
		cfg:    cfg,
		logger: logger.With("component", "generator", "model", cfg.Model),
	}
}

func (g *Generator) Introduce(ctx context.Context, jobDescription, resumeText string) (string, error) {
	contents := []*genai.Content{userContent(openingPrompt)}
	return g.generate(ctx, "introduce", contents, g.config(interviewerSystem(jobDescription, resumeText)))
}

func (g *Generator) NextQuestion(ctx context.Context, jobDescription, resumeText string, history []interview.Entry) (string, error) {
	return g.generate(ctx, "next_question", historyContents(history), g.config(interviewerSystem(jobDescription, resumeText)))
}

func (g *Generator) ClosingRemark(ctx context.Context, history []interview.Entry) (string, error) {
	contents := append(historyContents(history), userContent(closingPrompt))
	return g.generate(ctx, "closing_remark", contents, g.config(closingInstruction))
}

func (g *Generator) Feedback(ctx context.Context, jobDescription, resumeText string, history []interview.Entry) (interview.Feedback, error) {
	cfg := g.config(feedbackInstruction)
	cfg.ResponseMIMEType = "application/json"

	contents := []*genai.Content{userContent(feedbackPrompt(jobDescription, resumeText, history))}
	raw, err := g.generate(ctx, "feedback", contents, cfg)
	if err != nil {
		return interview.Feedback{}, err
	}
	return parseFeedback(raw)
}

func (g *Generator) Model() string {
	return g.cfg.Model
}

func (g *Generator) config(system string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		Temperature:       genai.Ptr(g.cfg.Temperature),
	}
}

func (g *Generator) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	start := time.Now()
	var resp *genai.GenerateContentResponse
	err := shared.Retry(ctx, g.cfg.Backoff, IsTemporary, func() error {
		var err error
		resp, err = g.models.GenerateContent(ctx, g.cfg.Model, contents, cfg)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", op, err)
	}

	output := ResponseText(resp)
	if output == "" {
		return "", fmt.Errorf("generate %s: %w", op, ErrEmptyResponse)
	}

	g.logger.Debug("gemini response",
		"op", op,
		"turns", len(contents),
		"response_length", utf8.RuneCountInString(output),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return output, nil
}

// ResponseText joins the non-empty text parts of every candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}

// IsTemporary reports whether a Gemini call is worth retrying.
func IsTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Code >= http.StatusInternalServerError
	}
	return false
}

func userContent(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
}

// historyContents maps the conversation onto Gemini turns. System entries
// are carried by the system instruction instead. The first turn is always a
// user turn.
func historyContents(history []interview.Entry) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, e := range history {
		var role string
		switch e.Role {
		case interview.RoleInterviewer:
			role = genai.RoleModel
		case interview.RoleCandidate:
			role = genai.RoleUser
		default:
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: e.Content}}})
	}

	if len(contents) == 0 || contents[0].Role != genai.RoleUser {
		contents = append([]*genai.Content{userContent(openingPrompt)}, contents...)
	}
	return contents
}
