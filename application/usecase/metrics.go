package usecase

import (
	"context"
	"time"

	"archkit/pkg/result"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsBehavior 指标行为
// 按请求名与结果状态记录调用计数与耗时分布（OpenTelemetry）
// 未装配 MeterProvider 时 otel 默认为 no-op，不产生额外开销
type MetricsBehavior struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func NewMetricsBehavior(meter metric.Meter) (*MetricsBehavior, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("archkit/usecase")
	}

	requests, err := meter.Int64Counter("usecase.requests",
		metric.WithDescription("Number of use case dispatches"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("usecase.duration",
		metric.WithDescription("Use case execution time"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &MetricsBehavior{requests: requests, duration: duration}, nil
}

func (*MetricsBehavior) Name() string { return BehaviorMetrics }

func (b *MetricsBehavior) Handle(ctx context.Context, req Request, next Next) (interface{}, error) {
	start := time.Now()

	res, err := next(ctx, req)

	status := result.StatusError.String()
	if err == nil {
		if outcome, ok := res.(result.Outcome); ok {
			status = outcome.ResultStatus().String()
		}
	}

	attrs := metric.WithAttributes(
		attribute.String("request", req.RequestName()),
		attribute.String("status", status),
	)
	b.requests.Add(ctx, 1, attrs)
	b.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return res, err
}
