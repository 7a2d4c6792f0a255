package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/eleven-am/interview-backend/internal/interview"
)

// parseFeedback decodes the assessment leniently. Range and size rules are
// enforced later by interview.NormalizeFeedback.
func parseFeedback(raw string) (interview.Feedback, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return interview.Feedback{}, fmt.Errorf("parse feedback: %w", err)
	}

	return interview.Feedback{
		Rating:       coerceRating(data["rating"]),
		Feedback:     coerceString(data["feedback"]),
		KeyTakeaways: coerceStrings(firstOf(data, "keyTakeaways", "key_takeaways", "takeaways")),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start > 0 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}

func firstOf(data map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := data[k]; ok {
			return v
		}
	}
	return nil
}

func coerceRating(v any) int {
	switch val := v.(type) {
	case float64:
		return int(math.Round(val))
	case string:
		trimmed := strings.TrimSpace(val)
		if head, _, ok := strings.Cut(trimmed, "/"); ok {
			trimmed = strings.TrimSpace(head)
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return int(math.Round(f))
	default:
		return 0
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, line := range strings.Split(val, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
			if line != "" {
				out = append(out, line)
			}
		}
		return out
	default:
		return nil
	}
}
