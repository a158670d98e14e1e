package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics 通知投递相关指标集合
type OTelMetrics struct {
	NotificationSentTotal    metric.Int64Counter
	NotificationFailedTotal  metric.Int64Counter
	NotificationRetryTotal   metric.Int64Counter
	DeliveryDuration         metric.Float64Histogram
	RateLimitWaitDuration    metric.Float64Histogram
	ActiveDeliveries         metric.Int64UpDownCounter
	ReminderProcessedTotal   metric.Int64Counter
	ReminderRescheduledTotal metric.Int64Counter

	// HTTP 相关指标
	HTTPServerRequestTotal   metric.Int64Counter
	HTTPServerDuration       metric.Float64Histogram
	HTTPServerActiveRequests metric.Int64UpDownCounter
}

var (
	metrics *OTelMetrics
	meter   = otel.Meter("paintdesk")
)

// InitMetrics 初始化 OpenTelemetry 指标
func InitMetrics() error {
	var err error

	metrics = &OTelMetrics{}

	metrics.NotificationSentTotal, err = meter.Int64Counter(
		"notification_sent_total",
		metric.WithDescription("Total number of notifications delivered"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationFailedTotal, err = meter.Int64Counter(
		"notification_failed_total",
		metric.WithDescription("Total number of notifications that failed permanently"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return err
	}

	metrics.NotificationRetryTotal, err = meter.Int64Counter(
		"notification_retry_total",
		metric.WithDescription("Total number of delivery retry attempts scheduled"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return err
	}

	metrics.DeliveryDuration, err = meter.Float64Histogram(
		"notification_delivery_duration_seconds",
		metric.WithDescription("Time spent delivering a notification in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.RateLimitWaitDuration, err = meter.Float64Histogram(
		"notification_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting on the channel rate limiter in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.ActiveDeliveries, err = meter.Int64UpDownCounter(
		"notification_active_deliveries",
		metric.WithDescription("Number of deliveries currently in flight"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return err
	}

	metrics.ReminderProcessedTotal, err = meter.Int64Counter(
		"reminder_processed_total",
		metric.WithDescription("Total number of reminders dispatched"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return err
	}

	metrics.ReminderRescheduledTotal, err = meter.Int64Counter(
		"reminder_rescheduled_total",
		metric.WithDescription("Total number of recurring reminders rescheduled"),
		metric.WithUnit("{reminder}"),
	)
	if err != nil {
		return err
	}

	metrics.HTTPServerRequestTotal, err = meter.Int64Counter(
		"http_server_request_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	metrics.HTTPServerDuration, err = meter.Float64Histogram(
		"http_server_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	metrics.HTTPServerActiveRequests, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// GetMetrics 获取全局指标实例，未初始化时返回 nil
func GetMetrics() *OTelMetrics {
	return metrics
}

func (m *OTelMetrics) RecordDelivered(ctx context.Context, channel string, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", "delivered"),
	)
	m.NotificationSentTotal.Add(ctx, 1, attrs)
	m.DeliveryDuration.Record(ctx, duration, attrs)
}

func (m *OTelMetrics) RecordFailed(ctx context.Context, channel, reason string, duration float64) {
	attrs := metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	)
	m.NotificationFailedTotal.Add(ctx, 1, attrs)
	m.DeliveryDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", "failed"),
	))
}

func (m *OTelMetrics) RecordRetry(ctx context.Context, channel, reason string) {
	m.NotificationRetryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("reason", reason),
	))
}

func (m *OTelMetrics) RecordRateLimitWait(ctx context.Context, channel string, waited float64) {
	m.RateLimitWaitDuration.Record(ctx, waited, metric.WithAttributes(
		attribute.String("channel", channel),
	))
}

func (m *OTelMetrics) AddActiveDelivery(ctx context.Context, channel string) {
	m.ActiveDeliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
	))
}

func (m *OTelMetrics) SubtractActiveDelivery(ctx context.Context, channel string) {
	m.ActiveDeliveries.Add(ctx, -1, metric.WithAttributes(
		attribute.String("channel", channel),
	))
}

func (m *OTelMetrics) RecordReminderProcessed(ctx context.Context, reminderType string) {
	m.ReminderProcessedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", reminderType),
	))
}

func (m *OTelMetrics) RecordReminderRescheduled(ctx context.Context, pattern string) {
	m.ReminderRescheduledTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pattern", pattern),
	))
}
