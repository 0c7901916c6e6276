package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/BaSui01/uniconnect/types"

	"go.uber.org/zap"
)

// Policy 定义重试策略配置
// 纯值类型，无内部状态，可在多个调用方之间共享
type Policy struct {
	MaxRetries int               // 最大重试次数（0 表示不重试）
	BaseDelay  time.Duration     // 首次重试前的延迟
	MaxDelay   time.Duration     // 延迟上限
	Multiplier float64           // 指数退避倍增因子
	RetryOn    []types.ErrorKind // 允许重试的错误类型
}

// neverRetry 这些错误类型重试也不会成功，即使配置了也忽略
var neverRetry = map[types.ErrorKind]bool{
	types.KindAuth:       true,
	types.KindBadRequest: true,
	types.KindParse:      true,
}

// DefaultPolicy 返回默认的重试策略
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		RetryOn:    []types.ErrorKind{types.KindRateLimit, types.KindServer, types.KindTimeout},
	}
}

// Normalize 修正非法参数，返回可用的策略
func (p Policy) Normalize() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = 1.0
	}
	if p.RetryOn == nil {
		p.RetryOn = DefaultPolicy().RetryOn
	}
	return p
}

// ShouldRetry 判断已消耗 attempt 次重试后，该类型的失败是否还能重试
func (p Policy) ShouldRetry(kind types.ErrorKind, attempt int) bool {
	if attempt >= p.MaxRetries || neverRetry[kind] {
		return false
	}
	for _, k := range p.RetryOn {
		if k == kind {
			return true
		}
	}
	return false
}

// Delay 计算第 attempt 次重试前的延迟（从 0 开始）
// 结果为 min(MaxDelay, BaseDelay * Multiplier^attempt)
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Sleep 等待 d，同时监听 context 取消
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do 执行 fn，失败时按策略重试
// fn 返回的错误通过 types.GetErrorKind 分类；返回已消耗的重试次数
func Do(ctx context.Context, p Policy, logger *zap.Logger, fn func(attempt int) error) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p = p.Normalize()

	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				logger.Info("retry succeeded", zap.Int("attempt", attempt))
			}
			return attempt, nil
		}

		kind := types.GetErrorKind(err)
		if !p.ShouldRetry(kind, attempt) {
			if attempt > 0 {
				logger.Warn("retries exhausted",
					zap.Int("retries", attempt),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
			}
			return attempt, err
		}

		delay := p.Delay(attempt)
		logger.Debug("retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", p.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if serr := Sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("retry cancelled: %w", serr)
		}
	}
}
