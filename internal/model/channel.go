package model

// Channel 通知通道枚举
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelPush     Channel = "PUSH"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelInApp    Channel = "IN_APP"
	ChannelReminder Channel = "REMINDER"
)

// Valid 判断通道是否合法
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelPush, ChannelWhatsApp, ChannelInApp, ChannelReminder:
		return true
	}
	return false
}

// QueueChannels 需要独立队列消费者的通道集合。
// IN_APP 是同步直投，没有队列。
var QueueChannels = []Channel{ChannelEmail, ChannelPush, ChannelWhatsApp, ChannelReminder}

// ChannelSettings 每个通道固定的处理参数
type ChannelSettings struct {
	Concurrency   int // 消费并发（对应 prefetch）
	RatePerMinute int // 60 秒窗口内的最大派发数，0 表示不限流
	BackoffBaseMS int // 退避基数（毫秒）
	MaxAttempts   int
}

// Settings 返回通道的处理参数。
func (c Channel) Settings() ChannelSettings {
	switch c {
	case ChannelEmail:
		return ChannelSettings{Concurrency: 5, RatePerMinute: 60, BackoffBaseMS: 2000, MaxAttempts: 3}
	case ChannelPush:
		return ChannelSettings{Concurrency: 10, RatePerMinute: 100, BackoffBaseMS: 2000, MaxAttempts: 3}
	case ChannelWhatsApp:
		return ChannelSettings{Concurrency: 3, RatePerMinute: 20, BackoffBaseMS: 5000, MaxAttempts: 3}
	case ChannelReminder:
		return ChannelSettings{Concurrency: 5, RatePerMinute: 0, BackoffBaseMS: 3000, MaxAttempts: 3}
	default:
		return ChannelSettings{Concurrency: 1, RatePerMinute: 0, BackoffBaseMS: 2000, MaxAttempts: 3}
	}
}
