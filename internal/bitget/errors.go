package bitget

import (
	"context"
	"errors"
	"fmt"
	"net"

	"bitget-fleet/internal/domain"
)

// apiError 为交易所返回的业务层错误（HTTP 错误或 code != 00000）。
type apiError struct {
	status int
	code   string
	msg    string
}

func (e *apiError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("交易所返回错误 code=%s msg=%s", e.code, e.msg)
	}
	return fmt.Sprintf("交易所返回 HTTP %d: %s", e.status, e.msg)
}

// 交易所凭证/签名类业务错误码，运行中途凭证失效时也会出现在普通请求里。
var authCodes = map[string]struct{}{
	"40001": {}, // ACCESS_KEY 为空
	"40002": {}, // ACCESS_SIGN 为空
	"40003": {}, // 签名为空
	"40005": {}, // ACCESS_TIMESTAMP 无效
	"40006": {}, // ACCESS_KEY 无效
	"40008": {}, // 请求时间戳过期
	"40009": {}, // 签名错误
	"40011": {}, // ACCESS_PASSPHRASE 为空
	"40012": {}, // apikey 或密码不正确
	"40037": {}, // apikey 不存在
}

func isAuthCode(code string) bool {
	_, ok := authCodes[code]
	return ok
}

// classifyTransport 将传输层错误归入超时或网络类别。
func classifyTransport(err error) *domain.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrKindTimeout, "请求超时", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.WrapError(domain.ErrKindTimeout, "请求超时", err)
	}

	return domain.WrapError(domain.ErrKindNetwork, "请求失败", err)
}

// isRetryable 判断错误是否值得重试；仅网络类错误可重试。
func isRetryable(err error) bool {
	return domain.KindOf(err) == domain.ErrKindNetwork
}
