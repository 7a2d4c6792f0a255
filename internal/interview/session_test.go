package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

type fakeGenerator struct {
	mu sync.Mutex

	introErr    error
	nextErr     error
	closingErr  error
	feedback    Feedback
	feedbackErr error

	nextCalls   int
	lastHistory []Entry
}

func (f *fakeGenerator) Introduce(ctx context.Context, jobDescription, resumeText string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.introErr != nil {
		return "", f.introErr
	}
	return "Tell me about yourself.", nil
}

func (f *fakeGenerator) NextQuestion(ctx context.Context, jobDescription, resumeText string, history []Entry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHistory = history
	if f.nextErr != nil {
		return "", f.nextErr
	}
	f.nextCalls++
	return fmt.Sprintf("Question %d", f.nextCalls+1), nil
}

func (f *fakeGenerator) ClosingRemark(ctx context.Context, history []Entry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHistory = history
	if f.closingErr != nil {
		return "", f.closingErr
	}
	return "Thanks for your time.", nil
}

func (f *fakeGenerator) Feedback(ctx context.Context, jobDescription, resumeText string, history []Entry) (Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHistory = history
	if f.feedbackErr != nil {
		return Feedback{}, f.feedbackErr
	}
	return f.feedback, nil
}

func newStartedSession(t *testing.T, gen *fakeGenerator, maxQuestions int) *Session {
	t.Helper()
	s := New(gen, Params{JobDescription: "Go engineer", ResumeText: "Jane Doe", MaxQuestions: maxQuestions})
	turn, err := s.Start(context.Background())
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if turn.QuestionNumber != 1 {
		t.Fatalf("expected question number 1, got %d", turn.QuestionNumber)
	}
	return s
}

func TestSession_Start(t *testing.T) {
	s := newStartedSession(t, &fakeGenerator{}, 3)

	if s.Status() != StatusInProgress {
		t.Errorf("expected status %s, got %s", StatusInProgress, s.Status())
	}

	history := s.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].Role != RoleSystem {
		t.Errorf("expected first entry role %s, got %s", RoleSystem, history[0].Role)
	}
	if history[1].Role != RoleInterviewer || history[1].Content != "Tell me about yourself." {
		t.Errorf("unexpected first question entry: %+v", history[1])
	}
}

func TestSession_StartGenerationFailureIsRetryable(t *testing.T) {
	gen := &fakeGenerator{introErr: errors.New("model unavailable")}
	s := New(gen, Params{MaxQuestions: 3})

	_, err := s.Start(context.Background())
	if !IsGenerationError(err) {
		t.Fatalf("expected generation error, got %v", err)
	}
	if s.Status() != StatusNotStarted {
		t.Errorf("expected status %s after failure, got %s", StatusNotStarted, s.Status())
	}
	if len(s.History()) != 0 {
		t.Error("history should be empty after failed start")
	}

	gen.introErr = nil
	if _, err := s.Start(context.Background()); err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if s.Status() != StatusInProgress {
		t.Errorf("expected status %s after retry, got %s", StatusInProgress, s.Status())
	}
}

func TestSession_StartTwice(t *testing.T) {
	s := newStartedSession(t, &fakeGenerator{}, 3)
	if _, err := s.Start(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSession_QuestionNumberIncrementsUntilMax(t *testing.T) {
	for _, maxQuestions := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("max_%d", maxQuestions), func(t *testing.T) {
			s := newStartedSession(t, &fakeGenerator{}, maxQuestions)
			prev := 1

			for i := 1; i < maxQuestions; i++ {
				turn, err := s.SubmitAnswer(context.Background(), "answer")
				if err != nil {
					t.Fatalf("submit %d failed: %v", i, err)
				}
				if turn.Closing {
					t.Fatalf("submit %d closed the interview early", i)
				}
				if turn.QuestionNumber != prev+1 {
					t.Fatalf("expected question number %d, got %d", prev+1, turn.QuestionNumber)
				}
				prev = turn.QuestionNumber
			}

			turn, err := s.SubmitAnswer(context.Background(), "final answer")
			if err != nil {
				t.Fatalf("final submit failed: %v", err)
			}
			if !turn.Closing {
				t.Fatal("expected closing turn after max questions")
			}
			if turn.QuestionNumber != maxQuestions {
				t.Errorf("question number should stay %d, got %d", maxQuestions, turn.QuestionNumber)
			}
			if s.Status() != StatusClosing {
				t.Errorf("expected status %s, got %s", StatusClosing, s.Status())
			}

			if _, err := s.SubmitAnswer(context.Background(), "extra"); !errors.Is(err, ErrInvalidState) {
				t.Errorf("expected ErrInvalidState while closing, got %v", err)
			}
			if s.QuestionNumber() != maxQuestions {
				t.Errorf("question number changed after closing: %d", s.QuestionNumber())
			}
		})
	}
}

func TestSession_ZeroMaxQuestionsClosesOnFirstAnswer(t *testing.T) {
	s := newStartedSession(t, &fakeGenerator{}, 0)

	turn, err := s.SubmitAnswer(context.Background(), "answer")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if !turn.Closing {
		t.Error("expected the first answer to close the interview")
	}
}

func TestSession_SubmitAnswerGenerationFailureKeepsState(t *testing.T) {
	gen := &fakeGenerator{}
	s := newStartedSession(t, gen, 3)
	before := s.History()

	gen.nextErr = errors.New("timeout")
	_, err := s.SubmitAnswer(context.Background(), "answer")
	if !IsGenerationError(err) {
		t.Fatalf("expected generation error, got %v", err)
	}

	if s.QuestionNumber() != 1 {
		t.Errorf("question number should be unchanged, got %d", s.QuestionNumber())
	}
	if got := len(s.History()); got != len(before) {
		t.Errorf("history should be unchanged, had %d entries, now %d", len(before), got)
	}

	gen.nextErr = nil
	turn, err := s.SubmitAnswer(context.Background(), "answer")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if turn.QuestionNumber != 2 {
		t.Errorf("expected question number 2 on retry, got %d", turn.QuestionNumber)
	}
}

func TestSession_GeneratorSeesAnswerInHistory(t *testing.T) {
	gen := &fakeGenerator{}
	s := newStartedSession(t, gen, 3)

	if _, err := s.SubmitAnswer(context.Background(), "I write Go"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	last := gen.lastHistory[len(gen.lastHistory)-1]
	if last.Role != RoleCandidate || last.Content != "I write Go" {
		t.Errorf("expected candidate answer last in history, got %+v", last)
	}
}

func TestSession_SubmitBeforeStart(t *testing.T) {
	s := New(&fakeGenerator{}, Params{MaxQuestions: 3})
	if _, err := s.SubmitAnswer(context.Background(), "answer"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSession_Finalize(t *testing.T) {
	gen := &fakeGenerator{feedback: Feedback{
		Rating:       4,
		Feedback:     "Strong answers.",
		KeyTakeaways: []string{"one", "two"},
	}}
	s := newStartedSession(t, gen, 1)
	if _, err := s.SubmitAnswer(context.Background(), "answer"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	fb, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if fb.Rating != 4 || fb.Feedback != "Strong answers." {
		t.Errorf("unexpected feedback: %+v", fb)
	}
	if len(fb.KeyTakeaways) != TakeawayCount {
		t.Errorf("expected %d takeaways, got %d", TakeawayCount, len(fb.KeyTakeaways))
	}
	if s.Status() != StatusComplete {
		t.Errorf("expected status %s, got %s", StatusComplete, s.Status())
	}
	if !s.Discarded() {
		t.Error("completed session should be discarded")
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done should be closed after finalize")
	}

	if _, err := s.SubmitAnswer(context.Background(), "late"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after completion, got %v", err)
	}
}

func TestSession_FinalizeFallsBackOnFailure(t *testing.T) {
	gen := &fakeGenerator{feedbackErr: errors.New("malformed json")}
	s := newStartedSession(t, gen, 0)
	if _, err := s.SubmitAnswer(context.Background(), "answer"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	fb, err := s.Finalize(context.Background())
	if !IsGenerationError(err) {
		t.Errorf("expected generation error to be reported, got %v", err)
	}
	if fb.Rating != DefaultRating {
		t.Errorf("expected fallback rating %d, got %d", DefaultRating, fb.Rating)
	}
	if len(fb.KeyTakeaways) != TakeawayCount {
		t.Errorf("expected %d takeaways, got %d", TakeawayCount, len(fb.KeyTakeaways))
	}
	if s.Status() != StatusComplete {
		t.Errorf("expected status %s even on failure, got %s", StatusComplete, s.Status())
	}
}

func TestSession_FinalizeRequiresClosing(t *testing.T) {
	s := newStartedSession(t, &fakeGenerator{}, 3)
	if _, err := s.Finalize(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSession_DiscardDropsLateResult(t *testing.T) {
	gen := &blockingGenerator{fakeGenerator: &fakeGenerator{}, release: make(chan struct{}), entered: make(chan struct{})}
	s := newStartedSession(t, gen.fakeGenerator, 3)
	s.gen = gen

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SubmitAnswer(context.Background(), "answer")
		errCh <- err
	}()

	<-gen.entered
	s.Discard()
	close(gen.release)

	if err := <-errCh; !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for late result, got %v", err)
	}
	if s.QuestionNumber() != 1 {
		t.Errorf("late result should not be committed, question number %d", s.QuestionNumber())
	}
}

func TestSession_DiscardDropsLateFeedback(t *testing.T) {
	fake := &fakeGenerator{feedback: Feedback{Rating: 5, Feedback: "Great."}}
	s := newStartedSession(t, fake, 1)
	if _, err := s.SubmitAnswer(context.Background(), "answer"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	gen := &blockingGenerator{fakeGenerator: fake, release: make(chan struct{}), entered: make(chan struct{})}
	s.gen = gen

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Finalize(context.Background())
		errCh <- err
	}()

	<-gen.entered
	s.Discard()
	close(gen.release)

	if err := <-errCh; !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for late feedback, got %v", err)
	}
	if s.Status() == StatusComplete {
		t.Error("late feedback should not complete the session")
	}
}

type blockingGenerator struct {
	*fakeGenerator
	entered chan struct{}
	release chan struct{}
}

func (b *blockingGenerator) NextQuestion(ctx context.Context, jobDescription, resumeText string, history []Entry) (string, error) {
	close(b.entered)
	<-b.release
	return b.fakeGenerator.NextQuestion(ctx, jobDescription, resumeText, history)
}

func (b *blockingGenerator) Feedback(ctx context.Context, jobDescription, resumeText string, history []Entry) (Feedback, error) {
	close(b.entered)
	<-b.release
	return b.fakeGenerator.Feedback(ctx, jobDescription, resumeText, history)
}
