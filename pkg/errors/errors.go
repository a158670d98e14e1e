package errors

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 队列管理相关错误。
var (
	QueueNotFound      = Definition{Code: "QUEUE_NOT_FOUND", Message: "Queue not found"}
	QueueAlreadyPaused = Definition{Code: "QUEUE_ALREADY_PAUSED", Message: "Queue already paused"}
	JobNotFound        = Definition{Code: "JOB_NOT_FOUND", Message: "Job not found"}
	JobNotFailed       = Definition{Code: "JOB_NOT_FAILED", Message: "Job is not in failed state"}
	TooManyRequests    = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests"}
)

// 投递相关错误。
var (
	RecipientMissing = Definition{Code: "RECIPIENT_MISSING", Message: "Recipient is missing"}
	ChannelInvalid   = Definition{Code: "CHANNEL_INVALID", Message: "Channel invalid"}
)

// 请求与提醒相关错误。
var (
	InvalidRequest         = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	ReminderNotFound       = Definition{Code: "REMINDER_NOT_FOUND", Message: "Reminder not found"}
	ReminderNotCancellable = Definition{Code: "REMINDER_NOT_CANCELLABLE", Message: "Reminder can no longer be cancelled"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	QueueNotFound.Code:          QueueNotFound,
	QueueAlreadyPaused.Code:     QueueAlreadyPaused,
	JobNotFound.Code:            JobNotFound,
	JobNotFailed.Code:           JobNotFailed,
	TooManyRequests.Code:        TooManyRequests,
	RecipientMissing.Code:       RecipientMissing,
	ChannelInvalid.Code:         ChannelInvalid,
	InvalidRequest.Code:         InvalidRequest,
	ReminderNotFound.Code:       ReminderNotFound,
	ReminderNotCancellable.Code: ReminderNotCancellable,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}
