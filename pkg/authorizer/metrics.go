package authorizer

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/openkcm/taskboard-client/pkg/authorizer"

type meters struct {
	requests       metric.Int64Counter
	refreshes      metric.Int64Counter
	replays        metric.Int64Counter
	refreshFailure metric.Int64Counter
	duration       metric.Int64Histogram
}

func newMeters() (*meters, error) {
	meter := otel.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion(otel.Version()),
	)

	var (
		m   meters
		err error
	)

	m.requests, err = meter.Int64Counter(
		"authorizer.request_count",
		metric.WithDescription("Outgoing request count"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request_count meter: %w", err)
	}

	m.refreshes, err = meter.Int64Counter(
		"authorizer.refresh_count",
		metric.WithDescription("Token refreshes started after a 401 response"),
		metric.WithUnit("refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh_count meter: %w", err)
	}

	m.replays, err = meter.Int64Counter(
		"authorizer.replay_count",
		metric.WithDescription("Requests replayed with a renewed token"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating replay_count meter: %w", err)
	}

	m.refreshFailure, err = meter.Int64Counter(
		"authorizer.refresh_failure_count",
		metric.WithDescription("Token refreshes that ended the session"),
		metric.WithUnit("refresh"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating refresh_failure_count meter: %w", err)
	}

	m.duration, err = meter.Int64Histogram(
		"authorizer.duration",
		metric.WithDescription("Outgoing end to end duration including replays"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration meter: %w", err)
	}

	return &m, nil
}
