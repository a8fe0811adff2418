package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind 标识单账户失败的错误类别。
type ErrorKind string

const (
	ErrKindAuth                ErrorKind = "auth_error"
	ErrKindMarketData          ErrorKind = "market_data_error"
	ErrKindInsufficientBalance ErrorKind = "insufficient_balance"
	ErrKindInvalidQuantity     ErrorKind = "invalid_quantity"
	ErrKindOrderRejected       ErrorKind = "order_rejected"
	ErrKindNetwork             ErrorKind = "network_error"
	ErrKindTimeout             ErrorKind = "timeout_error"
	ErrKindUnknown             ErrorKind = "unknown"
)

// Error 携带错误类别的账户级错误，在编排器边界转化为失败结果。
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建不带底层原因的账户级错误。
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError 包装底层错误并标注类别。
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 提取错误类别；超时上下文归类为 timeout。
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	return ErrKindUnknown
}
