package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/eleven-am/interview-backend/internal/extraction"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/eleven-am/interview-backend/internal/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChannel struct {
	mu      sync.Mutex
	events  []OutboundEvent
	sendErr error
	closed  bool
	notify  chan OutboundEvent
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{notify: make(chan OutboundEvent, 64)}
}

func (c *fakeChannel) Send(ctx context.Context, ev OutboundEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, ev)
	c.notify <- ev
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) failSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) received() []OutboundEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]OutboundEvent(nil), c.events...)
}

// next waits for the next event written to the channel.
func (c *fakeChannel) next(t *testing.T, timeout time.Duration) OutboundEvent {
	t.Helper()
	select {
	case ev := <-c.notify:
		return ev
	case <-time.After(timeout):
		t.Fatalf("no event within %s", timeout)
		return OutboundEvent{}
	}
}

func (c *fakeChannel) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case ev := <-c.notify:
		t.Fatalf("unexpected event %s", ev.Event)
	case <-time.After(wait):
	}
}

type scriptedGenerator struct {
	mu sync.Mutex

	introErr    error
	nextErr     error
	feedback    interview.Feedback
	feedbackErr error
	block       chan struct{}

	// feedbackEntered is closed when Feedback starts; Feedback then waits
	// on feedbackBlock.
	feedbackEntered chan struct{}
	feedbackBlock   chan struct{}

	asked int
}

func (g *scriptedGenerator) wait(ctx context.Context) error {
	g.mu.Lock()
	block := g.block
	g.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *scriptedGenerator) Introduce(ctx context.Context, jobDescription, resumeText string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.introErr != nil {
		return "", g.introErr
	}
	g.asked = 1
	return "Welcome! Tell me about yourself.", nil
}

func (g *scriptedGenerator) NextQuestion(ctx context.Context, jobDescription, resumeText string, history []interview.Entry) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.nextErr != nil {
		return "", g.nextErr
	}
	g.asked++
	return fmt.Sprintf("Question %d?", g.asked), nil
}

func (g *scriptedGenerator) ClosingRemark(ctx context.Context, history []interview.Entry) (string, error) {
	return "Thank you for your time.", nil
}

func (g *scriptedGenerator) Feedback(ctx context.Context, jobDescription, resumeText string, history []interview.Entry) (interview.Feedback, error) {
	g.mu.Lock()
	entered, block := g.feedbackEntered, g.feedbackBlock
	g.mu.Unlock()
	if entered != nil {
		close(entered)
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return interview.Feedback{}, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.feedbackErr != nil {
		return interview.Feedback{}, g.feedbackErr
	}
	return g.feedback, nil
}

type fakeExtractor struct {
	mu   sync.Mutex
	err  error
	docs []extraction.Document
}

func (e *fakeExtractor) ExtractText(ctx context.Context, doc extraction.Document) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docs = append(e.docs, doc)
	if e.err != nil {
		return "", &extraction.Error{MIMEType: doc.MIMEType, Err: e.err}
	}
	return string(doc.Data), nil
}

type fakeSpeech struct {
	err error
}

func (s *fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []byte("RIFF" + text), nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	counts  map[string]int
	clients []string
	latency int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{counts: make(map[string]int)}
}

func (r *fakeRecorder) Increment(ctx context.Context, field string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[field]++
	return nil
}

func (r *fakeRecorder) RecordLatency(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency++
	return nil
}

func (r *fakeRecorder) TrackClient(ctx context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = append(r.clients, clientID)
	return nil
}

func (r *fakeRecorder) count(field string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[field]
}

type fakeArchive struct {
	mu      sync.Mutex
	reports []*report.Report
	saved   chan struct{}
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{saved: make(chan struct{}, 8)}
}

func (a *fakeArchive) Save(ctx context.Context, r *report.Report) error {
	a.mu.Lock()
	a.reports = append(a.reports, r)
	a.mu.Unlock()
	a.saved <- struct{}{}
	return nil
}

var errBoom = errors.New("boom")
