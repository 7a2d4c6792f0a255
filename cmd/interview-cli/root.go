package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/eleven-am/interview-backend/internal/client"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

const app = "interview-cli"

// Actual version can be specified in build command.
var version = "unknown"

var (
	serverURL    string
	clientID     string
	jobFile      string
	resumeFile   string
	maxQuestions int
	audioDir     string
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:     app,
	Short:   "Take an automated job interview in the terminal",
	Version: version,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&serverURL, "server", "s", envOr("INTERVIEW_SERVER", "http://localhost:8080"), "interview server address")
	rootCmd.Flags().StringVar(&clientID, "client-id", "", "client identity (default: random)")
	rootCmd.Flags().StringVarP(&jobFile, "job", "j", "", "file containing the job description (prompted when empty)")
	rootCmd.Flags().StringVarP(&resumeFile, "resume", "r", "", "resume file: text, markdown, PDF or image")
	rootCmd.Flags().IntVarP(&maxQuestions, "max-questions", "n", 0, "number of questions (server default when 0)")
	rootCmd.Flags().StringVar(&audioDir, "audio-dir", "", "directory to save interviewer audio into")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "verbose output")
}

func run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	job, err := loadJobDescription()
	if err != nil {
		return err
	}

	resume, mimeType, err := loadResume(resumeFile)
	if err != nil {
		return err
	}

	if clientID == "" {
		clientID = uuid.NewString()
	}

	c, err := client.Dial(ctx, serverURL, clientID, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Connected as %s. Type your answers and press ENTER.\n\n", clientID)

	fb, err := c.Run(ctx, client.StartRequest{
		JobDescription: job,
		Resume:         resume,
		ResumeMIMEType: mimeType,
		MaxQuestions:   maxQuestions,
	}, &terminalCandidate{audioDir: audioDir})
	if err != nil {
		return err
	}

	printFeedback(fb)
	return nil
}

func loadJobDescription() (string, error) {
	if jobFile != "" {
		data, err := os.ReadFile(jobFile)
		if err != nil {
			return "", fmt.Errorf("read job description: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	prompt := promptui.Prompt{
		Label: "Job description",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("job description is required")
			}
			return nil
		},
	}
	return prompt.Run()
}

// loadResume returns text files as-is and binary documents as a base64 data
// URL.
func loadResume(path string) (string, string, error) {
	if path == "" {
		return "", "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read resume: %w", err)
	}

	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" || strings.HasPrefix(mimeType, "text/") || filepath.Ext(path) == ".md" {
		return string(data), "text/plain", nil
	}

	mediaType, _, _ := mime.ParseMediaType(mimeType)
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), mediaType, nil
}

type terminalCandidate struct {
	audioDir string
}

func (t *terminalCandidate) Answer(ctx context.Context, q client.Question) (string, error) {
	t.show(q)

	prompt := promptui.Prompt{Label: fmt.Sprintf("Answer %d", q.Number)}
	answer, err := prompt.Run()
	if err != nil {
		return "", err
	}
	fmt.Println()
	return answer, nil
}

func (t *terminalCandidate) Hear(q client.Question) {
	t.show(q)
	fmt.Println("Preparing your feedback...")
}

func (t *terminalCandidate) show(q client.Question) {
	if q.Closing {
		fmt.Printf("Interviewer: %s\n\n", q.Text)
	} else {
		fmt.Printf("[%d] Interviewer: %s\n", q.Number, q.Text)
	}

	if t.audioDir == "" || len(q.Audio) == 0 {
		return
	}
	name := fmt.Sprintf("question-%02d.wav", q.Number)
	if q.Closing {
		name = "closing.wav"
	}
	if err := os.WriteFile(filepath.Join(t.audioDir, name), q.Audio, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "could not save audio: %v\n", err)
	}
}

func printFeedback(fb interview.Feedback) {
	fmt.Printf("\nRating: %d/%d\n\n%s\n\nKey takeaways:\n", fb.Rating, interview.MaxRating, fb.Feedback)
	for i, t := range fb.KeyTakeaways {
		fmt.Printf("%2d. %s\n", i+1, t)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
