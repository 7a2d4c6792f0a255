package gateway

import (
	"bytes"
	"encoding/json"

	"github.com/eleven-am/interview-backend/internal/interview"
)

type EventType string

const (
	EventStartInterview EventType = "start_interview"
	EventSubmitAnswer   EventType = "submit_answer"

	EventConnectionEstablished EventType = "connection_established"
	EventInterviewStarted      EventType = "interview_started"
	EventNextQuestion          EventType = "next_question"
	EventInterviewClosing      EventType = "interview_closing"
	EventInterviewComplete     EventType = "interview_complete"
	EventError                 EventType = "error"
)

const (
	msgInterviewStarted  = "Interview started successfully"
	msgInterviewClosing  = "Interview concluding"
	msgInterviewComplete = "Interview completed"

	msgSessionExpired   = "Invalid session or session expired"
	msgNotAccepting     = "Interview is not accepting answers"
	msgStartFailed      = "Failed to start the interview, please try again"
	msgQuestionFailed   = "Failed to generate the next question, please try again"
	msgResumeUnreadable = "Could not read the provided resume"
	msgInternal         = "Internal server error"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type OutboundEvent struct {
	Event EventType `json:"event"`
	Data  any       `json:"data"`
}

type ConnectionEstablishedPayload struct {
	ClientID string `json:"client_id"`
}

type StartInterviewPayload struct {
	JobDescription string `json:"job_description"`
	Resume         string `json:"resume"`
	ResumeMIMEType string `json:"resume_mime_type,omitempty"`
	MaxQuestions   *int   `json:"max_questions,omitempty"`
}

type SubmitAnswerPayload struct {
	Answer string `json:"answer"`
}

// QuestionPayload carries an interviewer turn. Audio is base64 WAV when
// speech synthesis is enabled and succeeded.
type QuestionPayload struct {
	Message        string `json:"message,omitempty"`
	Question       string `json:"question"`
	QuestionNumber int    `json:"question_number"`
	Audio          []byte `json:"audio,omitempty"`
}

type CompletePayload struct {
	Message  string             `json:"message"`
	Feedback interview.Feedback `json:"feedback"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// DecodeEnvelope parses one inbound frame. Missing or null data decodes as an
// empty object.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, &DecodeError{Reason: "envelope", Err: err}
	}
	if env.Event == "" {
		return Envelope{}, &DecodeError{Reason: "missing event"}
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		env.Data = json.RawMessage("{}")
		return env, nil
	}
	if data[0] != '{' {
		return Envelope{}, &DecodeError{Event: env.Event, Reason: "data is not an object"}
	}
	env.Data = data
	return env, nil
}

// DecodeData unmarshals the envelope payload into v.
func (e Envelope) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return &DecodeError{Event: e.Event, Reason: "data", Err: err}
	}
	return nil
}

func errorEvent(message string) OutboundEvent {
	return OutboundEvent{Event: EventError, Data: ErrorPayload{Message: message}}
}
