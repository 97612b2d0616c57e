package retry

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/nerdneilsfield/epub-translator/pkg/providers"
)

var errNoRewind = errors.New("request body cannot be replayed")

// RetryConfig 重试配置
type RetryConfig struct {
	// 最大重试次数，0 表示不重试
	MaxRetries int `json:"max_retries"`

	// 初始延迟时间
	InitialDelay time.Duration `json:"initial_delay"`

	// 最大延迟时间
	MaxDelay time.Duration `json:"max_delay"`

	// 退避因子（指数退避）
	BackoffFactor float64 `json:"backoff_factor"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    0,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Transport 带重试的 http.RoundTripper
// 网络错误、429 和 5xx 响应会按指数退避重试
type Transport struct {
	Base   http.RoundTripper
	Config RetryConfig
}

// NewTransport 包装 base，base 为 nil 时使用 http.DefaultTransport
func NewTransport(base http.RoundTripper, config RetryConfig) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Base: base, Config: config}
}

// RoundTrip 执行HTTP请求（带重试）
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	for attempt := 0; ; attempt++ {
		attemptReq := req
		if attempt > 0 {
			// 请求体只能读取一次，重试前需要重新获取
			if req.Body != nil && req.GetBody == nil {
				return nil, providers.NewError(providers.KindOther, errNoRewind)
			}
			attemptReq = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attemptReq.Body = body
			}
		}

		resp, err := t.Base.RoundTrip(attemptReq)
		if !t.shouldRetry(resp, err) || attempt >= t.Config.MaxRetries {
			return resp, err
		}
		if resp != nil {
			resp.Body.Close()
		}

		if err := sleep(ctx, t.calculateDelay(attempt)); err != nil {
			return nil, err
		}
	}
}

// shouldRetry 判断是否应该重试
func (t *Transport) shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		kind := providers.Classify(err)
		return kind == providers.KindNetwork || kind == providers.KindTimeout
	}
	if resp == nil {
		return false
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

// calculateDelay 计算延迟时间
func (t *Transport) calculateDelay(attempt int) time.Duration {
	delay := t.Config.InitialDelay
	if attempt > 0 {
		backoffFactor := t.Config.BackoffFactor
		if backoffFactor <= 1.0 {
			backoffFactor = 2.0
		}
		delay = time.Duration(float64(delay) * math.Pow(backoffFactor, float64(attempt)))
	}
	if t.Config.MaxDelay > 0 && delay > t.Config.MaxDelay {
		delay = t.Config.MaxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
