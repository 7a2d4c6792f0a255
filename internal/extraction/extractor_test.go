package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/genai"
)

type stubModels struct {
	text      string
	err       error
	calls     int
	lastParts []*genai.Part
}

func (s *stubModels) GenerateContent(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.calls++
	s.lastParts = contents[0].Parts
	if s.err != nil {
		return nil, s.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: s.text}}}}},
	}, nil
}

func newTestClient(models *stubModels) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if models == nil {
		return New(nil, Config{}, logger)
	}
	return New(models, Config{Model: "gemini-test"}, logger)
}

func TestExtractText_PlainText(t *testing.T) {
	stub := &stubModels{}
	c := newTestClient(stub)

	text, err := c.ExtractText(context.Background(), Document{MIMEType: "text/plain; charset=utf-8", Data: []byte("  Jane Doe\nGo developer  ")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Jane Doe\nGo developer" {
		t.Errorf("unexpected text: %q", text)
	}
	if stub.calls != 0 {
		t.Error("plain text should not reach the model")
	}
}

func TestExtractText_PDF(t *testing.T) {
	stub := &stubModels{text: "Jane Doe\nSenior Engineer"}
	c := newTestClient(stub)

	pdf := []byte("%PDF-1.7\n...binary...")
	text, err := c.ExtractText(context.Background(), Document{MIMEType: "application/pdf", Data: pdf})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Jane Doe\nSenior Engineer" {
		t.Errorf("unexpected text: %q", text)
	}

	if len(stub.lastParts) != 2 || stub.lastParts[0].InlineData == nil {
		t.Fatalf("expected inline document part, got %+v", stub.lastParts)
	}
	if stub.lastParts[0].InlineData.MIMEType != "application/pdf" {
		t.Errorf("unexpected inline mime type %q", stub.lastParts[0].InlineData.MIMEType)
	}
}

func TestExtractText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		models  *stubModels
		doc     Document
		wantErr error
	}{
		{
			name:    "empty document",
			models:  &stubModels{},
			doc:     Document{MIMEType: "text/plain", Data: []byte("   ")},
			wantErr: ErrEmptyDocument,
		},
		{
			name:    "invalid utf-8",
			models:  &stubModels{},
			doc:     Document{MIMEType: "text/plain", Data: []byte{0xff, 0xfe, 0xfd}},
			wantErr: ErrCorruptDocument,
		},
		{
			name:    "corrupt pdf",
			models:  &stubModels{},
			doc:     Document{MIMEType: "application/pdf", Data: []byte("definitely not a pdf")},
			wantErr: ErrCorruptDocument,
		},
		{
			name:    "unsupported type",
			models:  &stubModels{},
			doc:     Document{MIMEType: "application/zip", Data: []byte("PK\x03\x04")},
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "no model configured",
			models:  nil,
			doc:     Document{MIMEType: "application/pdf", Data: []byte("%PDF-1.4")},
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "model returns nothing",
			models:  &stubModels{text: ""},
			doc:     Document{MIMEType: "application/pdf", Data: []byte("%PDF-1.4")},
			wantErr: ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.models)
			_, err := c.ExtractText(context.Background(), tt.doc)

			var extErr *Error
			if !errors.As(err, &extErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExtractText_ModelFailure(t *testing.T) {
	stub := &stubModels{err: errors.New("quota exceeded")}
	c := newTestClient(stub)

	_, err := c.ExtractText(context.Background(), Document{MIMEType: "image/png", Data: []byte("\x89PNG\r\n\x1a\nrest")})
	var extErr *Error
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if extErr.MIMEType != "image/png" {
		t.Errorf("expected image/png, got %s", extErr.MIMEType)
	}
}
