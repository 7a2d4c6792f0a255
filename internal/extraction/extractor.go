package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/eleven-am/interview-backend/internal/generation"
	"github.com/eleven-am/interview-backend/internal/shared"
	"google.golang.org/genai"
)

const extractInstruction = `Extract the full plain text of the attached resume.
Preserve section headings, job titles, dates and bullet points as plain lines.
Output only the extracted text without commentary.`

var (
	ErrEmptyDocument   = errors.New("document is empty")
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrCorruptDocument = errors.New("document is corrupt")
)

// Document is a raw resume blob and its media type.
type Document struct {
	MIMEType string
	Data     []byte
}

type Extractor interface {
	ExtractText(ctx context.Context, doc Document) (string, error)
}

// Error wraps every extraction failure with the media type involved.
type Error struct {
	MIMEType string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.MIMEType, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var inlineTypes = map[string][]byte{
	"application/pdf": []byte("%PDF-"),
	"image/png":       []byte("\x89PNG\r\n\x1a\n"),
	"image/jpeg":      []byte("\xff\xd8\xff"),
	"image/webp":      []byte("RIFF"),
}

type Config struct {
	Model   string
	Backoff shared.BackoffConfig
}

// Client returns text documents as-is and sends PDFs and images to Gemini.
// With a nil ContentGenerator only text documents are accepted.
type Client struct {
	models generation.ContentGenerator
	cfg    Config
	logger *slog.Logger
}

func New(models generation.ContentGenerator, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = generation.DefaultModel
	}
	return &Client{
		models: models,
		cfg:    cfg,
		logger: logger.With("component", "extractor"),
	}
}

func (c *Client) ExtractText(ctx context.Context, doc Document) (string, error) {
	mimeType := normalizeType(doc.MIMEType)
	if len(bytes.TrimSpace(doc.Data)) == 0 {
		return "", &Error{MIMEType: mimeType, Err: ErrEmptyDocument}
	}

	if strings.HasPrefix(mimeType, "text/") {
		if !utf8.Valid(doc.Data) {
			return "", &Error{MIMEType: mimeType, Err: fmt.Errorf("%w: invalid utf-8", ErrCorruptDocument)}
		}
		return strings.TrimSpace(string(doc.Data)), nil
	}

	magic, ok := inlineTypes[mimeType]
	if !ok || c.models == nil {
		return "", &Error{MIMEType: mimeType, Err: ErrUnsupportedType}
	}
	if !bytes.HasPrefix(doc.Data, magic) {
		return "", &Error{MIMEType: mimeType, Err: fmt.Errorf("%w: signature mismatch", ErrCorruptDocument)}
	}

	start := time.Now()
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: doc.Data}},
			{Text: extractInstruction},
		},
	}}
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}

	var resp *genai.GenerateContentResponse
	err := shared.Retry(ctx, c.cfg.Backoff, generation.IsTemporary, func() error {
		var err error
		resp, err = c.models.GenerateContent(ctx, c.cfg.Model, contents, cfg)
		return err
	})
	if err != nil {
		return "", &Error{MIMEType: mimeType, Err: err}
	}

	text := generation.ResponseText(resp)
	if text == "" {
		return "", &Error{MIMEType: mimeType, Err: ErrEmptyDocument}
	}

	c.logger.Debug("resume extracted",
		"mime_type", mimeType,
		"bytes", len(doc.Data),
		"text_length", utf8.RuneCountInString(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func normalizeType(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		return "text/plain"
	}
	if parsed, _, err := mime.ParseMediaType(mimeType); err == nil {
		return parsed
	}
	return strings.ToLower(mimeType)
}
