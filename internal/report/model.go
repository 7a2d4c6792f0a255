package report

import (
	"time"

	"github.com/eleven-am/interview-backend/internal/shared"
)

// Report is the archived outcome of a completed interview.
type Report struct {
	ID             string             `gorm:"primaryKey" json:"id"`
	ClientID       string             `gorm:"not null;index" json:"client_id"`
	JobDescription string             `gorm:"type:text" json:"job_description"`
	Rating         int                `gorm:"not null" json:"rating"`
	Feedback       string             `gorm:"type:text" json:"feedback"`
	KeyTakeaways   shared.StringSlice `gorm:"type:text" json:"key_takeaways"`
	Transcript     shared.StringSlice `gorm:"type:text" json:"transcript,omitempty"`
	QuestionCount  int                `json:"question_count"`
	MaxQuestions   int                `json:"max_questions"`
	Fallback       bool               `json:"fallback"`
	CreatedAt      time.Time          `gorm:"index" json:"created_at"`
}

type ListResponse struct {
	ClientID string    `json:"client_id"`
	Reports  []*Report `json:"reports"`
}
