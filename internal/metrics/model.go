package metrics

import "strconv"

const (
	FieldStarted   = "interviews_started"
	FieldCompleted = "interviews_completed"
	FieldAnswers   = "answers"
	FieldErrors    = "error_count"
	FieldClients   = "unique_clients"

	fieldTotalLatency = "total_latency_ms"
	fieldLatencyCount = "latency_count"
)

// Metrics is one hour of interview activity.
type Metrics struct {
	Date               string `json:"date"`
	Hour               int    `json:"hour"`
	InterviewsStarted  int64  `json:"interviews_started"`
	InterviewsComplete int64  `json:"interviews_completed"`
	Answers            int64  `json:"answers"`
	UniqueClients      int64  `json:"unique_clients"`
	ErrorCount         int64  `json:"error_count"`
	AvgLatencyMs       int64  `json:"avg_latency_ms"`
}

type ListResponse struct {
	Hours   int        `json:"hours"`
	Metrics []*Metrics `json:"metrics"`
}

type Summary struct {
	Period         string  `json:"period"`
	TotalStarted   int64   `json:"total_started"`
	TotalCompleted int64   `json:"total_completed"`
	TotalAnswers   int64   `json:"total_answers"`
	UniqueClients  int64   `json:"unique_clients"`
	CompletionRate float64 `json:"completion_rate"`
	ErrorRate      float64 `json:"error_rate"`
	AvgLatencyMs   int64   `json:"avg_latency_ms"`
}

func redisKey(date string, hour int) string {
	return "interview:metrics:" + date + ":" + strconv.Itoa(hour)
}

func clientsKey(date string, hour int) string {
	return "interview:clients:" + date + ":" + strconv.Itoa(hour)
}
