package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eleven-am/interview-backend/internal/gateway"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrUnexpectedEvent = errors.New("unexpected event")

// ServerError is an error event sent by the server.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return "server: " + e.Message
}

// Question is one interviewer turn as seen by the candidate.
type Question struct {
	Message string
	Text    string
	Number  int
	Audio   []byte
	Closing bool
}

// Candidate answers the interviewer. Hear receives the closing remark, which
// expects no answer.
type Candidate interface {
	Answer(ctx context.Context, q Question) (string, error)
	Hear(q Question)
}

type StartRequest struct {
	JobDescription string
	Resume         string
	ResumeMIMEType string
	MaxQuestions   int
}

type Client struct {
	ws       *websocket.Conn
	clientID string
	logger   *slog.Logger
	writeMu  sync.Mutex
}

// Endpoint builds the websocket URL for clientID from an http(s) or ws(s)
// server address.
func Endpoint(server, clientID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/ws/" + url.PathEscape(clientID)
	return u.String(), nil
}

// Dial connects as clientID and waits for the connection handshake.
func Dial(ctx context.Context, server, clientID string, logger *slog.Logger) (*Client, error) {
	endpoint, err := Endpoint(server, clientID)
	if err != nil {
		return nil, err
	}

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	c := &Client{
		ws:       ws,
		clientID: clientID,
		logger:   logger.With("component", "client", "client_id", clientID),
	}

	env, err := c.read(ctx)
	if err != nil {
		ws.Close()
		return nil, err
	}
	if env.Event != gateway.EventConnectionEstablished {
		ws.Close()
		return nil, fmt.Errorf("%w: %s before handshake", ErrUnexpectedEvent, env.Event)
	}
	c.logger.Debug("connected", "endpoint", endpoint)
	return c, nil
}

// Run starts an interview and drives it to completion, returning the
// feedback.
func (c *Client) Run(ctx context.Context, req StartRequest, candidate Candidate) (interview.Feedback, error) {
	start := gateway.StartInterviewPayload{
		JobDescription: req.JobDescription,
		Resume:         req.Resume,
		ResumeMIMEType: req.ResumeMIMEType,
	}
	if req.MaxQuestions > 0 {
		start.MaxQuestions = &req.MaxQuestions
	}
	if err := c.send(gateway.EventStartInterview, start); err != nil {
		return interview.Feedback{}, err
	}

	for {
		env, err := c.read(ctx)
		if err != nil {
			return interview.Feedback{}, err
		}

		switch env.Event {
		case gateway.EventInterviewStarted, gateway.EventNextQuestion:
			q, err := decodeQuestion(env)
			if err != nil {
				return interview.Feedback{}, err
			}
			answer, err := candidate.Answer(ctx, q)
			if err != nil {
				return interview.Feedback{}, err
			}
			if err := c.send(gateway.EventSubmitAnswer, gateway.SubmitAnswerPayload{Answer: answer}); err != nil {
				return interview.Feedback{}, err
			}

		case gateway.EventInterviewClosing:
			q, err := decodeQuestion(env)
			if err != nil {
				return interview.Feedback{}, err
			}
			q.Closing = true
			candidate.Hear(q)

		case gateway.EventInterviewComplete:
			var p gateway.CompletePayload
			if err := env.DecodeData(&p); err != nil {
				return interview.Feedback{}, err
			}
			return p.Feedback, nil

		case gateway.EventError:
			var p gateway.ErrorPayload
			if err := env.DecodeData(&p); err != nil {
				return interview.Feedback{}, err
			}
			return interview.Feedback{}, &ServerError{Message: p.Message}

		default:
			c.logger.Debug("ignoring event", "event", env.Event)
		}
	}
}

func decodeQuestion(env gateway.Envelope) (Question, error) {
	var p gateway.QuestionPayload
	if err := env.DecodeData(&p); err != nil {
		return Question{}, err
	}
	return Question{Message: p.Message, Text: p.Question, Number: p.QuestionNumber, Audio: p.Audio}, nil
}

func (c *Client) send(event gateway.EventType, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(gateway.OutboundEvent{Event: event, Data: data}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// read returns the next decodable frame. Reads are unblocked when ctx is
// cancelled by closing the socket.
func (c *Client) read(ctx context.Context) (gateway.Envelope, error) {
	stop := context.AfterFunc(ctx, func() { c.ws.Close() })
	defer stop()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return gateway.Envelope{}, ctxErr
			}
			return gateway.Envelope{}, fmt.Errorf("read: %w", err)
		}

		env, err := gateway.DecodeEnvelope(raw)
		if err != nil {
			c.logger.Warn("skipping undecodable frame", "error", err)
			continue
		}
		return env, nil
	}
}

// Close sends a close frame and closes the socket.
func (c *Client) Close() error {
	c.writeMu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return c.ws.Close()
}
