package errors

import (
	"errors"
	"fmt"
)

// 投递流水线的错误分类。重试引擎只认这里的类型：
// ValidationError / TransportError 可重试，PermanentRecipientError 直接终态，
// PersistenceError 只记录不影响投递结果，SchedulingError 过早弹出提醒。

// ValidationError 收件人缺失或格式非法。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// TransportError 网络层失败（超时、连接重置、供应商限流），可重试。
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PermanentRecipientError 收件人不可达（token 失效、号码未注册、地址非法），
// 不重试，同时触发收件人标记失效。
type PermanentRecipientError struct {
	Recipient string
	Reason    string
}

func (e *PermanentRecipientError) Error() string {
	return fmt.Sprintf("permanent recipient failure: %s", e.Reason)
}

// PersistenceError 状态写入失败，记录日志后吞掉，绝不改变投递结果。
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SchedulingError 提醒被过早弹出时返回，任务失败但无副作用。
type SchedulingError struct {
	Reason string
}

func (e *SchedulingError) Error() string {
	return "scheduling error: " + e.Reason
}

// SkipMessageError 消费者遇到重复消息时返回，ack 后跳过。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}

func IsValidationError(err error) bool {
	var t *ValidationError
	return errors.As(err, &t)
}

func IsTransportError(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}

func IsPermanentRecipientError(err error) bool {
	var t *PermanentRecipientError
	return errors.As(err, &t)
}

func IsPersistenceError(err error) bool {
	var t *PersistenceError
	return errors.As(err, &t)
}

func IsSchedulingError(err error) bool {
	var t *SchedulingError
	return errors.As(err, &t)
}

func IsSkipMessageError(err error) bool {
	var t *SkipMessageError
	return errors.As(err, &t)
}

// IsRetryable 重试引擎的唯一判定入口。未知错误按可重试的传输错误处理。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsPermanentRecipientError(err) || IsSchedulingError(err) || IsSkipMessageError(err) {
		return false
	}
	// ValidationError 目前与 TransportError 同样重试，待产品侧澄清后再收紧
	return true
}
