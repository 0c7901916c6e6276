// =============================================================================
// 📦 uniconnect 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	"github.com/BaSui01/uniconnect/retry"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Retry:     DefaultRetryConfig(),
		HTTP:      DefaultHTTPConfig(),
		Metrics:   DefaultMetricsConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Scan:      DefaultScanConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置，日志写到 stderr，stdout 留给命令输出
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     false,
		EnableStacktrace: false,
	}
}

// DefaultRetryConfig 返回与 retry.DefaultPolicy 一致的重试配置
func DefaultRetryConfig() RetryConfig {
	p := retry.DefaultPolicy()
	on := make([]string, len(p.RetryOn))
	for i, k := range p.RetryOn {
		on[i] = string(k)
	}
	return RetryConfig{
		MaxRetries: p.MaxRetries,
		BaseDelay:  p.BaseDelay,
		MaxDelay:   p.MaxDelay,
		Multiplier: p.Multiplier,
		RetryOn:    on,
	}
}

// DefaultHTTPConfig 返回默认 HTTP 配置
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:      0,
		FetchTimeout: 30 * time.Second,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Namespace: "uniconnect",
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "uniconnect",
		SampleRate:   0.1,
	}
}

// DefaultScanConfig 返回默认扫描配置
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		RatePerSecond: 0,
		Burst:         1,
	}
}
