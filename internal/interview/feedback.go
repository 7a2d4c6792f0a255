package interview

import "strings"

const (
	MinRating       = 1
	MaxRating       = 5
	DefaultRating   = 3
	TakeawayCount   = 10
	fallbackMessage = "Thank you for completing the interview. Detailed feedback could not be generated, but your answers have been recorded."
)

var genericTakeaways = [TakeawayCount]string{
	"Structure answers with a clear situation, action and result.",
	"Quantify the impact of your work wherever possible.",
	"Connect your experience directly to the requirements of the role.",
	"Prepare concrete examples for the core skills in the job description.",
	"Keep answers focused and concise.",
	"Explain the reasoning behind your technical decisions.",
	"Highlight collaboration and communication with your team.",
	"Show how you handled setbacks and what you learned from them.",
	"Ask clarifying questions when a prompt is ambiguous.",
	"Research the company and its products before the interview.",
}

// FallbackFeedback is the canonical record used when generation fails.
func FallbackFeedback() Feedback {
	takeaways := make([]string, TakeawayCount)
	copy(takeaways, genericTakeaways[:])
	return Feedback{
		Rating:       DefaultRating,
		Feedback:     fallbackMessage,
		KeyTakeaways: takeaways,
	}
}

// NormalizeFeedback clamps the rating to [1,5] and coerces the takeaways to
// exactly TakeawayCount non-blank entries.
func NormalizeFeedback(fb Feedback) Feedback {
	out := Feedback{
		Rating:   clampRating(fb.Rating),
		Feedback: strings.TrimSpace(fb.Feedback),
	}
	if out.Feedback == "" {
		out.Feedback = fallbackMessage
	}

	takeaways := make([]string, 0, TakeawayCount)
	for _, t := range fb.KeyTakeaways {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		takeaways = append(takeaways, t)
		if len(takeaways) == TakeawayCount {
			break
		}
	}
	for i := 0; len(takeaways) < TakeawayCount; i++ {
		takeaways = append(takeaways, genericTakeaways[i%TakeawayCount])
	}
	out.KeyTakeaways = takeaways

	return out
}

func clampRating(r int) int {
	switch {
	case r == 0:
		return DefaultRating
	case r < MinRating:
		return MinRating
	case r > MaxRating:
		return MaxRating
	default:
		return r
	}
}
