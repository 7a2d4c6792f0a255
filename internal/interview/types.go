package interview

import "context"

type Role string

const (
	RoleSystem      Role = "system"
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// Entry is one turn of the conversation as seen by the generator.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusClosing    Status = "closing"
	StatusComplete   Status = "complete"
)

type Feedback struct {
	Rating       int      `json:"rating"`
	Feedback     string   `json:"feedback"`
	KeyTakeaways []string `json:"keyTakeaways"`
}

// Generator produces interviewer turns and the final assessment. History
// slices handed to it are copies and may be retained.
type Generator interface {
	Introduce(ctx context.Context, jobDescription, resumeText string) (string, error)
	NextQuestion(ctx context.Context, jobDescription, resumeText string, history []Entry) (string, error)
	ClosingRemark(ctx context.Context, history []Entry) (string, error)
	Feedback(ctx context.Context, jobDescription, resumeText string, history []Entry) (Feedback, error)
}

type Params struct {
	JobDescription string
	ResumeText     string
	MaxQuestions   int
}

// Turn is the interviewer output of a transition.
type Turn struct {
	Text           string
	QuestionNumber int
	Closing        bool
}

type Info struct {
	ClientID       string `json:"client_id"`
	Status         Status `json:"status"`
	QuestionNumber int    `json:"question_number"`
	MaxQuestions   int    `json:"max_questions"`
}
