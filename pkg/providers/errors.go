package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// ErrorKind 后端调用失败的类别
type ErrorKind int

const (
	KindOther     ErrorKind = iota
	KindNetwork             // 连接失败
	KindTimeout             // 超时
	KindAuth                // 认证失败
	KindRateLimit           // 触发限流
	KindMalformed           // 响应无法使用
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate-limit"
	case KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// Error 提供商错误
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindNetwork, KindTimeout, KindRateLimit:
		return true
	default:
		return e.StatusCode >= 500
	}
}

// ErrEmptyResponse 后端没有返回任何候选
var ErrEmptyResponse = errors.New("no choices returned")

// NewError 创建提供商错误
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewStatusError 根据 HTTP 状态码创建提供商错误
func NewStatusError(status int, err error) *Error {
	return &Error{Kind: KindFromStatus(status), StatusCode: status, Err: err}
}

// KindFromStatus 将 HTTP 状态码映射到错误类别
func KindFromStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindOther
	}
}

// Classify 返回错误的类别
// 已经是 *Error 的直接使用其类别，其余按上下文超时和网络错误判断
func Classify(err error) ErrorKind {
	if err == nil {
		return KindOther
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	if errors.Is(err, context.Canceled) {
		return KindOther
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if IsNetworkError(err) {
		return KindNetwork
	}

	return KindOther
}

// IsNetworkError 判断是否为网络错误
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// 检查URL错误
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return IsNetworkError(urlErr.Err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// 检查连接错误
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// 检查错误消息模式
	errStr := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"network is unreachable",
		"no such host",
		"broken pipe",
		"unexpected eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
