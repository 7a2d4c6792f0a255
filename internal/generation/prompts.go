package generation

import (
	"fmt"
	"strings"

	"github.com/eleven-am/interview-backend/internal/interview"
)

const interviewerInstruction = `You are a professional interviewer running a job interview for the role described below.
Ask exactly one question per turn. Keep questions concise and conversational, and do not number them.
Mix questions about the candidate's experience from the resume with technical and behavioural questions relevant to the role.
Build on the candidate's previous answers where it helps, but do not repeat earlier questions.
Reply with the question text only.

Job description:
%s

Candidate resume:
%s`

const openingPrompt = "Greet the candidate briefly and ask the first interview question."

const closingInstruction = `You are a professional interviewer finishing a job interview.
The question budget is used up. Thank the candidate for their time in two or three sentences,
acknowledge their last answer, and tell them that feedback will follow shortly. Do not ask another question.`

const closingPrompt = "The interview is now over. Write your closing remark."

const feedbackInstruction = `You are an experienced hiring manager assessing a completed job interview.
Respond with a single JSON object and nothing else, using exactly these keys:
  "rating": an integer from 1 (poor) to 5 (excellent),
  "feedback": a paragraph summarising strengths and weaknesses,
  "keyTakeaways": an array of exactly 10 short, actionable recommendations for the candidate.`

func interviewerSystem(jobDescription, resumeText string) string {
	return fmt.Sprintf(interviewerInstruction, orNone(jobDescription), orNone(resumeText))
}

func feedbackPrompt(jobDescription, resumeText string, history []interview.Entry) string {
	var b strings.Builder
	b.WriteString("Job description:\n")
	b.WriteString(orNone(jobDescription))
	b.WriteString("\n\nCandidate resume:\n")
	b.WriteString(orNone(resumeText))
	b.WriteString("\n\nTranscript:\n")
	b.WriteString(transcript(history))
	return b.String()
}

func transcript(history []interview.Entry) string {
	var b strings.Builder
	for _, e := range history {
		switch e.Role {
		case interview.RoleInterviewer:
			b.WriteString("Interviewer: ")
		case interview.RoleCandidate:
			b.WriteString("Candidate: ")
		default:
			continue
		}
		b.WriteString(strings.TrimSpace(e.Content))
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return "(empty)"
	}
	return b.String()
}

func orNone(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "(not provided)"
	}
	return s
}
