package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/gitclub-console"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Backend API metrics
	APIRequestsTotal metric.Int64Counter
	APIErrorsTotal   metric.Int64Counter
	APIDuration      metric.Float64Histogram

	// Live update metrics
	ActiveRunningTimeStreams metric.Int64UpDownCounter
	PollsTotal               metric.Int64Counter

	// Job mutations made through the console
	JobsScheduledTotal metric.Int64Counter
	JobsCanceledTotal  metric.Int64Counter

	// Console sessions
	LoginsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.APIRequestsTotal, _ = meter.Int64Counter(
		"gitclub.api.requests.total",
		metric.WithDescription("Total number of backend API requests"),
		metric.WithUnit("{request}"),
	)

	m.APIErrorsTotal, _ = meter.Int64Counter(
		"gitclub.api.errors.total",
		metric.WithDescription("Total number of failed backend API requests"),
		metric.WithUnit("{error}"),
	)

	m.APIDuration, _ = meter.Float64Histogram(
		"gitclub.api.duration",
		metric.WithDescription("Duration of backend API requests"),
		metric.WithUnit("ms"),
	)

	m.ActiveRunningTimeStreams, _ = meter.Int64UpDownCounter(
		"gitclub.streams.running_time.active",
		metric.WithDescription("Number of open job running time streams"),
		metric.WithUnit("{stream}"),
	)

	m.PollsTotal, _ = meter.Int64Counter(
		"gitclub.polls.total",
		metric.WithDescription("Total number of scheduled re-fetches"),
		metric.WithUnit("{poll}"),
	)

	m.JobsScheduledTotal, _ = meter.Int64Counter(
		"gitclub.jobs.scheduled.total",
		metric.WithDescription("Total number of jobs scheduled"),
		metric.WithUnit("{job}"),
	)

	m.JobsCanceledTotal, _ = meter.Int64Counter(
		"gitclub.jobs.canceled.total",
		metric.WithDescription("Total number of jobs canceled"),
		metric.WithUnit("{job}"),
	)

	m.LoginsTotal, _ = meter.Int64Counter(
		"gitclub.logins.total",
		metric.WithDescription("Total number of console logins"),
		metric.WithUnit("{login}"),
	)

	return m
}
