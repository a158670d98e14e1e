package mask

import "strings"

// 事件与日志中只允许出现脱敏后的收件人标识。

// Email 保留首字符和域名：a***@example.com
func Email(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at <= 0 {
		return Token(addr)
	}
	local, domain := addr[:at], addr[at:]
	if len(local) == 1 {
		return local + "***" + domain
	}
	return local[:1] + "***" + domain
}

// Phone 只保留末 4 位。
func Phone(number string) string {
	if len(number) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}

// Token 设备 token 等长标识，保留前后各 4 位。
func Token(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// Recipient 按通道选择脱敏方式。
func Recipient(channel, recipient string) string {
	switch channel {
	case "EMAIL":
		return Email(recipient)
	case "WHATSAPP":
		return Phone(recipient)
	case "PUSH":
		return Token(recipient)
	default:
		return Token(recipient)
	}
}
