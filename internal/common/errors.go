package common

import (
	"errors"
	"fmt"
)

// Kind 是失败原因的分类，调用方据此决定跳过还是中止
type Kind string

const (
	KindUnknown     Kind = "unknown"
	KindTimeout     Kind = "timeout"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed"
	KindHTTPStatus  Kind = "http_status"
	KindTransport   Kind = "transport"
)

// AppError 应用级错误结构
type AppError struct {
	Code    string
	Kind    Kind
	Message string
	// HTTP status when known
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError 包装错误
func WrapError(code, message string, err error) error {
	return &AppError{
		Code:    code,
		Kind:    KindUnknown,
		Message: message,
		Err:     err,
	}
}

// ClassifiedError wraps err with an explicit failure kind and optional HTTP status.
func ClassifiedError(code string, kind Kind, status int, message string, err error) error {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// NewError 创建新错误
func NewError(code, message string) error {
	return &AppError{
		Code:    code,
		Kind:    KindUnknown,
		Message: message,
	}
}

// KindOf returns the failure kind of the outermost AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != "" {
		return appErr.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status recorded in err's chain, or 0.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// 错误码常量
const (
	ErrCodeGitHubAPI    = "GITHUB_API_ERROR"
	ErrCodeScrape       = "SCRAPE_ERROR"
	ErrCodeSink         = "SINK_ERROR"
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)
