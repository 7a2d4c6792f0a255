package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/eleven-am/interview-backend/internal/audio"
	"github.com/eleven-am/interview-backend/internal/generation"
	"github.com/eleven-am/interview-backend/internal/shared"
	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice = "Kore"

	maxInputLength = 4096
)

var (
	ErrEmptyInput = errors.New("text is empty")
	ErrNoAudio    = errors.New("gemini returned no audio")
)

type Config struct {
	Model      string
	Voice      string
	SampleRate int
	Backoff    shared.BackoffConfig
}

// Gemini synthesizes speech with a Gemini TTS model and returns WAV.
type Gemini struct {
	models generation.ContentGenerator
	cfg    Config
	logger *slog.Logger
}

func NewGemini(models generation.ContentGenerator, cfg Config, logger *slog.Logger) *Gemini {
	if cfg.Model = strings.TrimSpace(cfg.Model); cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Voice = strings.TrimSpace(cfg.Voice); cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return &Gemini{
		models: models,
		cfg:    cfg,
		logger: logger.With("component", "synthesis", "voice", cfg.Voice),
	}
}

func (g *Gemini) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyInput
	}
	if len(text) > maxInputLength {
		text = text[:maxInputLength]
	}

	start := time.Now()
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: g.cfg.Voice},
			},
		},
	}

	var resp *genai.GenerateContentResponse
	err := shared.Retry(ctx, g.cfg.Backoff, generation.IsTemporary, func() error {
		var err error
		resp, err = g.models.GenerateContent(ctx, g.cfg.Model, contents, cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	pcm, mimeType := inlineAudio(resp)
	if len(pcm) == 0 {
		return nil, ErrNoAudio
	}
	if audio.IsWAV(pcm) {
		return pcm, nil
	}

	rate := audio.ParsePCMRate(mimeType)
	if g.cfg.SampleRate > 0 && g.cfg.SampleRate != rate {
		pcm = audio.ResamplePCM(pcm, rate, g.cfg.SampleRate)
		rate = g.cfg.SampleRate
	}

	g.logger.Debug("speech synthesized",
		"text_length", len(text),
		"audio_bytes", len(pcm),
		"sample_rate", rate,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return audio.EncodeWAV(pcm, rate), nil
}

// inlineAudio concatenates the audio parts of the response.
func inlineAudio(resp *genai.GenerateContentResponse) ([]byte, string) {
	if resp == nil {
		return nil, ""
	}

	var data []byte
	var mimeType string
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || !strings.HasPrefix(part.InlineData.MIMEType, "audio/") {
				continue
			}
			if mimeType == "" {
				mimeType = part.InlineData.MIMEType
			}
			data = append(data, part.InlineData.Data...)
		}
	}
	return data, mimeType
}
