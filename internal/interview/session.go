package interview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Session is the interview state machine for one client. Transitions are
// serialized by mu and generator calls happen while it is held, so a client
// never has two transitions in flight. stateMu guards status and
// questionNumber for readers that must not wait on a generator call.
type Session struct {
	mu      sync.Mutex
	stateMu sync.RWMutex
	gen     Generator

	jobDescription string
	resumeText     string
	maxQuestions   int
	questionNumber int
	history        []Entry
	status         Status
	createdAt      time.Time

	discarded   atomic.Bool
	done        chan struct{}
	discardOnce sync.Once
}

func New(gen Generator, p Params) *Session {
	return &Session{
		gen:            gen,
		jobDescription: p.JobDescription,
		resumeText:     p.ResumeText,
		maxQuestions:   p.MaxQuestions,
		status:         StatusNotStarted,
		createdAt:      time.Now(),
		done:           make(chan struct{}),
	}
}

func (s *Session) Start(ctx context.Context) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(StatusNotStarted); err != nil {
		return Turn{}, err
	}

	question, err := s.gen.Introduce(ctx, s.jobDescription, s.resumeText)
	if err != nil {
		return Turn{}, &GenerationError{Op: "introduction", Err: err}
	}
	if s.discarded.Load() {
		return Turn{}, ErrSessionNotFound
	}

	s.history = append(s.history,
		Entry{Role: RoleSystem, Content: s.contextLocked()},
		Entry{Role: RoleInterviewer, Content: question},
	)
	s.setStateLocked(StatusInProgress, 1)

	return Turn{Text: question, QuestionNumber: s.questionNumber}, nil
}

// SubmitAnswer records the candidate's answer and produces the next
// interviewer turn. Once maxQuestions have been asked the turn is a closing
// remark and the session moves to StatusClosing. Nothing is committed when
// the generator fails.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) (Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(StatusInProgress); err != nil {
		return Turn{}, err
	}

	candidate := Entry{Role: RoleCandidate, Content: answer}
	view := s.viewLocked(candidate)

	if s.questionNumber >= s.maxQuestions {
		remark, err := s.gen.ClosingRemark(ctx, view)
		if err != nil {
			return Turn{}, &GenerationError{Op: "closing remark", Err: err}
		}
		if s.discarded.Load() {
			return Turn{}, ErrSessionNotFound
		}
		s.history = append(s.history, candidate, Entry{Role: RoleInterviewer, Content: remark})
		s.setStateLocked(StatusClosing, s.questionNumber)
		return Turn{Text: remark, QuestionNumber: s.questionNumber, Closing: true}, nil
	}

	question, err := s.gen.NextQuestion(ctx, s.jobDescription, s.resumeText, view)
	if err != nil {
		return Turn{}, &GenerationError{Op: "next question", Err: err}
	}
	if s.discarded.Load() {
		return Turn{}, ErrSessionNotFound
	}
	s.history = append(s.history, candidate, Entry{Role: RoleInterviewer, Content: question})
	s.setStateLocked(s.status, s.questionNumber+1)

	return Turn{Text: question, QuestionNumber: s.questionNumber}, nil
}

// Finalize moves a closing session to StatusComplete and discards it. The
// returned feedback is always well formed: if generation fails the fallback
// record is returned together with the *GenerationError. A session discarded
// while feedback was being generated reports ErrSessionNotFound.
func (s *Session) Finalize(ctx context.Context) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(StatusClosing); err != nil {
		return Feedback{}, err
	}

	var genErr error
	fb, err := s.gen.Feedback(ctx, s.jobDescription, s.resumeText, s.viewLocked())
	if s.discarded.Load() {
		return Feedback{}, ErrSessionNotFound
	}
	if err != nil {
		fb = FallbackFeedback()
		genErr = &GenerationError{Op: "feedback", Err: err}
	} else {
		fb = NormalizeFeedback(fb)
	}

	s.setStateLocked(StatusComplete, s.questionNumber)
	s.Discard()

	return fb, genErr
}

// Discard ends the session. Later transitions report ErrSessionNotFound.
func (s *Session) Discard() {
	s.discardOnce.Do(func() {
		s.discarded.Store(true)
		close(s.done)
	})
}

// Done is closed once the session is discarded.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Discarded() bool {
	return s.discarded.Load()
}

func (s *Session) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.status
}

func (s *Session) QuestionNumber() int {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.questionNumber
}

func (s *Session) MaxQuestions() int {
	return s.maxQuestions
}

func (s *Session) JobDescription() string {
	return s.jobDescription
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) checkLocked(want Status) error {
	if s.discarded.Load() {
		return ErrSessionNotFound
	}
	if s.status != want {
		return fmt.Errorf("%w: %s", ErrInvalidState, s.status)
	}
	return nil
}

func (s *Session) setStateLocked(status Status, questionNumber int) {
	s.stateMu.Lock()
	s.status = status
	s.questionNumber = questionNumber
	s.stateMu.Unlock()
}

func (s *Session) viewLocked(extra ...Entry) []Entry {
	view := make([]Entry, 0, len(s.history)+len(extra))
	view = append(view, s.history...)
	return append(view, extra...)
}

func (s *Session) contextLocked() string {
	return "Job description:\n" + s.jobDescription + "\n\nCandidate resume:\n" + s.resumeText
}

// IsGenerationError reports whether err came from the Generator.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}
