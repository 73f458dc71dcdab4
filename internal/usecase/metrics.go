package usecase

import "time"

// Metrics receives operational counters from use cases.
type Metrics interface {
	ObserveSyncRun(job, status string, duration time.Duration)
	AddSyncRows(job string, upserted, failed int)
	IncTransition(provider, kind string)
	IncPayment(method, outcome string)
	IncEmail(template, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSyncRun(string, string, time.Duration) {}
func (noopMetrics) AddSyncRows(string, int, int) {}
func (noopMetrics) IncTransition(string, string) {}
func (noopMetrics) IncPayment(string, string) {}
func (noopMetrics) IncEmail(string, string) {}

func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
