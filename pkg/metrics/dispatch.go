package metrics

import (
	"context"
)

// 包级便捷函数，指标未初始化时全部为空操作，
// 业务代码调用处不需要判空

func RecordDelivered(channel string, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordDelivered(context.Background(), channel, duration)
	}
}

func RecordFailed(channel, reason string, duration float64) {
	if m := GetMetrics(); m != nil {
		m.RecordFailed(context.Background(), channel, reason, duration)
	}
}

func RecordRetry(channel, reason string) {
	if m := GetMetrics(); m != nil {
		m.RecordRetry(context.Background(), channel, reason)
	}
}

func RecordRateLimitWait(channel string, waited float64) {
	if m := GetMetrics(); m != nil {
		m.RecordRateLimitWait(context.Background(), channel, waited)
	}
}

func AddActiveDelivery(channel string) {
	if m := GetMetrics(); m != nil {
		m.AddActiveDelivery(context.Background(), channel)
	}
}

func SubtractActiveDelivery(channel string) {
	if m := GetMetrics(); m != nil {
		m.SubtractActiveDelivery(context.Background(), channel)
	}
}

func RecordReminderProcessed(reminderType string) {
	if m := GetMetrics(); m != nil {
		m.RecordReminderProcessed(context.Background(), reminderType)
	}
}

func RecordReminderRescheduled(pattern string) {
	if m := GetMetrics(); m != nil {
		m.RecordReminderRescheduled(context.Background(), pattern)
	}
}
