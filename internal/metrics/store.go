package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const metricsTTL = 7 * 24 * time.Hour

// Store keeps hourly interview counters in redis hashes.
type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{
		redis: redisClient,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Increment(ctx context.Context, field string) error {
	return s.incrementBy(ctx, field, 1)
}

func (s *Store) incrementBy(ctx context.Context, field string, value int64) error {
	now := s.now()
	key := redisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, field, value)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RecordLatency adds one generation round trip to the hourly average.
func (s *Store) RecordLatency(ctx context.Context, d time.Duration) error {
	now := s.now()
	key := redisKey(now.Format("2006-01-02"), now.Hour())

	pipe := s.redis.Pipeline()
	pipe.HIncrBy(ctx, key, fieldTotalLatency, d.Milliseconds())
	pipe.HIncrBy(ctx, key, fieldLatencyCount, 1)
	pipe.Expire(ctx, key, metricsTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// TrackClient counts clientID once per hour.
func (s *Store) TrackClient(ctx context.Context, clientID string) error {
	now := s.now()
	key := clientsKey(now.Format("2006-01-02"), now.Hour())

	added, err := s.redis.SAdd(ctx, key, clientID).Result()
	if err != nil {
		return err
	}
	s.redis.Expire(ctx, key, metricsTTL)

	if added > 0 {
		return s.incrementBy(ctx, FieldClients, 1)
	}
	return nil
}

// GetMetrics returns the hours with recorded activity, newest first.
func (s *Store) GetMetrics(ctx context.Context, hours int) ([]*Metrics, error) {
	now := s.now()
	metrics := make([]*Metrics, 0)

	for i := 0; i < hours; i++ {
		t := now.Add(-time.Duration(i) * time.Hour)
		date := t.Format("2006-01-02")

		data, err := s.redis.HGetAll(ctx, redisKey(date, t.Hour())).Result()
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			continue
		}

		m := &Metrics{
			Date:               date,
			Hour:               t.Hour(),
			InterviewsStarted:  parseInt(data[FieldStarted]),
			InterviewsComplete: parseInt(data[FieldCompleted]),
			Answers:            parseInt(data[FieldAnswers]),
			UniqueClients:      parseInt(data[FieldClients]),
			ErrorCount:         parseInt(data[FieldErrors]),
		}
		if count := parseInt(data[fieldLatencyCount]); count > 0 {
			m.AvgLatencyMs = parseInt(data[fieldTotalLatency]) / count
		}
		metrics = append(metrics, m)
	}

	return metrics, nil
}

func (s *Store) Summarize(ctx context.Context, hours int) (*Summary, error) {
	metrics, err := s.GetMetrics(ctx, hours)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Period: strconv.Itoa(hours) + "h"}
	var totalLatency, latencyHours, errCount int64
	for _, m := range metrics {
		summary.TotalStarted += m.InterviewsStarted
		summary.TotalCompleted += m.InterviewsComplete
		summary.TotalAnswers += m.Answers
		summary.UniqueClients += m.UniqueClients
		errCount += m.ErrorCount
		if m.AvgLatencyMs > 0 {
			totalLatency += m.AvgLatencyMs
			latencyHours++
		}
	}

	if latencyHours > 0 {
		summary.AvgLatencyMs = totalLatency / latencyHours
	}
	if summary.TotalStarted > 0 {
		summary.CompletionRate = float64(summary.TotalCompleted) / float64(summary.TotalStarted) * 100
	}
	if requests := summary.TotalStarted + summary.TotalAnswers; requests > 0 {
		summary.ErrorRate = float64(errCount) / float64(requests) * 100
	}
	return summary, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func parseInt(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}
