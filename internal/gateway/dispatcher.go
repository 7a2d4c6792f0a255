package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/interview-backend/internal/extraction"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/eleven-am/interview-backend/internal/metrics"
	"github.com/eleven-am/interview-backend/internal/report"
	"github.com/eleven-am/interview-backend/internal/shared"
	"github.com/eleven-am/interview-backend/internal/synthesis"
)

const (
	DefaultMaxQuestions      = 20
	DefaultGenerationTimeout = 60 * time.Second
)

type Config struct {
	MaxQuestions      int
	SettleDelay       time.Duration
	GenerationTimeout time.Duration
}

// Recorder receives interview activity counters.
type Recorder interface {
	Increment(ctx context.Context, field string) error
	RecordLatency(ctx context.Context, d time.Duration) error
	TrackClient(ctx context.Context, clientID string) error
}

// Archiver persists completed interviews.
type Archiver interface {
	Save(ctx context.Context, r *report.Report) error
}

// Dispatcher routes inbound events for a client to its session and emits the
// resulting events through the registry. Dispatch is called sequentially per
// connection; different clients are dispatched concurrently.
type Dispatcher struct {
	registry  *Registry
	sessions  *interview.Store
	extractor extraction.Extractor
	speech    synthesis.Synthesizer
	recorder  Recorder
	archive   Archiver
	cfg       Config
	logger    *slog.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewDispatcher wires the dispatcher. speech, recorder and archive may be nil.
func NewDispatcher(
	registry *Registry,
	sessions *interview.Store,
	extractor extraction.Extractor,
	speech synthesis.Synthesizer,
	recorder Recorder,
	archive Archiver,
	cfg Config,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = DefaultMaxQuestions
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	return &Dispatcher{
		registry:  registry,
		sessions:  sessions,
		extractor: extractor,
		speech:    speech,
		recorder:  recorder,
		archive:   archive,
		cfg:       cfg,
		logger:    logger.With("component", "dispatcher"),
		done:      make(chan struct{}),
	}
}

func (d *Dispatcher) Connect(ctx context.Context, clientID string, ch Channel) error {
	if err := d.registry.Register(ctx, clientID, ch); err != nil {
		return err
	}
	d.track(func(ctx context.Context, r Recorder) error { return r.TrackClient(ctx, clientID) })
	return nil
}

// Disconnect tears down the registration and session owned by ch. A channel
// that was already superseded leaves both to its replacement.
func (d *Dispatcher) Disconnect(clientID string, ch Channel) {
	d.registry.Detach(clientID, ch, func() {
		d.sessions.Delete(clientID)
		d.logger.Info("client disconnected, session removed", "client_id", clientID)
	})
	_ = ch.Close()
}

func (d *Dispatcher) Dispatch(ctx context.Context, clientID string, raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic in dispatch", "client_id", clientID, "panic", r, "stack", string(debug.Stack()))
			d.send(ctx, clientID, errorEvent(msgInternal))
		}
	}()

	env, err := DecodeEnvelope(raw)
	if err != nil {
		d.logger.Warn("dropping undecodable frame", "client_id", clientID, "error", err)
		return
	}

	switch env.Event {
	case EventStartInterview:
		var p StartInterviewPayload
		if err := env.DecodeData(&p); err != nil {
			d.logger.Warn("dropping undecodable frame", "client_id", clientID, "error", err)
			return
		}
		d.handleStart(ctx, clientID, p)

	case EventSubmitAnswer:
		var p SubmitAnswerPayload
		if err := env.DecodeData(&p); err != nil {
			d.logger.Warn("dropping undecodable frame", "client_id", clientID, "error", err)
			return
		}
		d.handleSubmit(ctx, clientID, p)

	default:
		d.logger.Warn("ignoring unknown event", "client_id", clientID, "event", env.Event)
	}
}

func (d *Dispatcher) handleStart(ctx context.Context, clientID string, p StartInterviewPayload) {
	genCtx, cancel := d.generationContext(ctx)
	defer cancel()

	resumeText, err := d.resumeText(genCtx, p)
	if err != nil {
		d.logger.Warn("resume extraction failed", "client_id", clientID, "error", err)
		d.recordError()
		d.send(ctx, clientID, errorEvent(msgResumeUnreadable))
		return
	}

	maxQuestions := d.cfg.MaxQuestions
	if p.MaxQuestions != nil {
		maxQuestions = *p.MaxQuestions
	}

	sess := d.sessions.Create(clientID, interview.Params{
		JobDescription: p.JobDescription,
		ResumeText:     resumeText,
		MaxQuestions:   maxQuestions,
	})

	start := time.Now()
	turn, err := sess.Start(genCtx)
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		d.logger.Info("session discarded during start", "client_id", clientID)
		return
	case err != nil:
		d.logger.Error("failed to start interview", "client_id", clientID, "error", err)
		d.sessions.DeleteSession(clientID, sess)
		d.recordError()
		d.send(ctx, clientID, errorEvent(msgStartFailed))
		return
	}
	d.recordLatency(time.Since(start))

	d.send(ctx, clientID, OutboundEvent{
		Event: EventInterviewStarted,
		Data: QuestionPayload{
			Message:        msgInterviewStarted,
			Question:       turn.Text,
			QuestionNumber: turn.QuestionNumber,
			Audio:          d.synthesize(genCtx, clientID, turn.Text),
		},
	})
	d.track(func(ctx context.Context, r Recorder) error { return r.Increment(ctx, metrics.FieldStarted) })
	d.logger.Info("interview started", "client_id", clientID, "max_questions", maxQuestions)
}

func (d *Dispatcher) resumeText(ctx context.Context, p StartInterviewPayload) (string, error) {
	if strings.TrimSpace(p.Resume) == "" {
		return "", nil
	}

	doc, err := ParseResume(p.Resume, p.ResumeMIMEType)
	if err != nil {
		return "", &extraction.Error{MIMEType: p.ResumeMIMEType, Err: err}
	}
	return d.extractor.ExtractText(ctx, doc)
}

func (d *Dispatcher) handleSubmit(ctx context.Context, clientID string, p SubmitAnswerPayload) {
	sess, err := d.sessions.Get(clientID)
	if err != nil {
		d.send(ctx, clientID, errorEvent(msgSessionExpired))
		return
	}

	genCtx, cancel := d.generationContext(ctx)
	defer cancel()

	start := time.Now()
	turn, err := sess.SubmitAnswer(genCtx, p.Answer)
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		d.send(ctx, clientID, errorEvent(msgSessionExpired))
		return
	case errors.Is(err, interview.ErrInvalidState):
		d.send(ctx, clientID, errorEvent(msgNotAccepting))
		return
	case err != nil:
		d.logger.Error("failed to process answer", "client_id", clientID, "error", err)
		d.recordError()
		d.send(ctx, clientID, errorEvent(msgQuestionFailed))
		return
	}
	d.recordLatency(time.Since(start))
	d.track(func(ctx context.Context, r Recorder) error { return r.Increment(ctx, metrics.FieldAnswers) })

	payload := QuestionPayload{
		Question:       turn.Text,
		QuestionNumber: turn.QuestionNumber,
		Audio:          d.synthesize(genCtx, clientID, turn.Text),
	}

	if !turn.Closing {
		d.send(ctx, clientID, OutboundEvent{Event: EventNextQuestion, Data: payload})
		return
	}

	payload.Message = msgInterviewClosing
	d.send(ctx, clientID, OutboundEvent{Event: EventInterviewClosing, Data: payload})
	d.scheduleFinalize(clientID, sess)
}

// scheduleFinalize completes sess after the settle delay. The timer is
// abandoned if the session is discarded first.
func (d *Dispatcher) scheduleFinalize(clientID string, sess *interview.Session) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		timer := time.NewTimer(d.cfg.SettleDelay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-sess.Done():
			d.logger.Info("session discarded before feedback", "client_id", clientID)
			return
		case <-d.done:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.GenerationTimeout)
		defer cancel()

		fb, err := sess.Finalize(ctx)
		fallback := false
		switch {
		case errors.Is(err, interview.ErrSessionNotFound), errors.Is(err, interview.ErrInvalidState):
			d.logger.Info("session ended before feedback", "client_id", clientID, "error", err)
			return
		case err != nil:
			d.logger.Warn("feedback generation failed, using fallback", "client_id", clientID, "error", err)
			d.recordError()
			fallback = true
		}

		if !d.sessions.DeleteSession(clientID, sess) {
			d.logger.Info("session replaced before feedback was delivered", "client_id", clientID)
			return
		}
		d.send(ctx, clientID, OutboundEvent{
			Event: EventInterviewComplete,
			Data:  CompletePayload{Message: msgInterviewComplete, Feedback: fb},
		})

		d.archiveReport(ctx, clientID, sess, fb, fallback)
		d.track(func(ctx context.Context, r Recorder) error { return r.Increment(ctx, metrics.FieldCompleted) })
		d.logger.Info("interview completed", "client_id", clientID, "rating", fb.Rating, "fallback", fallback)
	}()
}

func (d *Dispatcher) archiveReport(ctx context.Context, clientID string, sess *interview.Session, fb interview.Feedback, fallback bool) {
	if d.archive == nil {
		return
	}

	var transcript shared.StringSlice
	for _, e := range sess.History() {
		if e.Role == interview.RoleSystem {
			continue
		}
		transcript = append(transcript, fmt.Sprintf("%s: %s", e.Role, e.Content))
	}

	r := &report.Report{
		ClientID:       clientID,
		JobDescription: sess.JobDescription(),
		Rating:         fb.Rating,
		Feedback:       fb.Feedback,
		KeyTakeaways:   shared.StringSlice(fb.KeyTakeaways),
		Transcript:     transcript,
		QuestionCount:  sess.QuestionNumber(),
		MaxQuestions:   sess.MaxQuestions(),
		Fallback:       fallback,
	}
	if err := d.archive.Save(ctx, r); err != nil {
		d.logger.Error("failed to archive report", "client_id", clientID, "error", err)
	}
}

// synthesize returns WAV audio for text, or nil when speech is disabled or
// fails. Audio is never required for progress.
func (d *Dispatcher) synthesize(ctx context.Context, clientID, text string) []byte {
	if d.speech == nil {
		return nil
	}
	wav, err := d.speech.Synthesize(ctx, text)
	if err != nil {
		d.logger.Warn("speech synthesis failed", "client_id", clientID, "error", err)
		return nil
	}
	return wav
}

func (d *Dispatcher) send(ctx context.Context, clientID string, ev OutboundEvent) {
	if !d.registry.Send(context.WithoutCancel(ctx), clientID, ev) {
		d.logger.Debug("no live channel, event dropped", "client_id", clientID, "event", ev.Event)
	}
}

// generationContext outlives the connection so an in-flight call can finish;
// its result is dropped if the session was discarded meanwhile.
func (d *Dispatcher) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d.cfg.GenerationTimeout)
}

func (d *Dispatcher) recordError() {
	d.track(func(ctx context.Context, r Recorder) error { return r.Increment(ctx, metrics.FieldErrors) })
}

func (d *Dispatcher) recordLatency(elapsed time.Duration) {
	d.track(func(ctx context.Context, r Recorder) error { return r.RecordLatency(ctx, elapsed) })
}

func (d *Dispatcher) track(fn func(context.Context, Recorder) error) {
	if d.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fn(ctx, d.recorder); err != nil {
		d.logger.Debug("failed to record metric", "error", err)
	}
}

// Close stops pending finalizations and waits for running ones.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.done) })
	d.wg.Wait()
}
