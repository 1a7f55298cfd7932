package usecase

import "time"

// JobMetrics receives per-item and per-run outcomes from the ingestion jobs.
type JobMetrics interface {
	ObserveItems(job, outcome string, n int)
	ObserveRun(job, status string, elapsed time.Duration)
}

type noopJobMetrics struct{}

func (noopJobMetrics) ObserveItems(string, string, int)         {}
func (noopJobMetrics) ObserveRun(string, string, time.Duration) {}

func metricsOrNoop(m JobMetrics) JobMetrics {
	if m == nil {
		return noopJobMetrics{}
	}
	return m
}
