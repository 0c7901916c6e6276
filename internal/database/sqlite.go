package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/uniconnect/retry"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrClosed 数据库已关闭
var ErrClosed = errors.New("database is closed")

// MemoryPath 私有内存库路径
const MemoryPath = ":memory:"

// =============================================================================
// 🗄️ SQLite 连接管理
// =============================================================================

// Config SQLite 连接配置
type Config struct {
	// 数据库文件路径，":memory:" 表示内存库
	Path string `yaml:"path" json:"path"`

	// 最大打开连接数（内存库固定为 1）
	MaxOpenConns int `yaml:"max_open_conns" json:"max_open_conns"`

	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// 事务冲突时的最大尝试次数
	TxAttempts int `yaml:"tx_attempts" json:"tx_attempts"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		TxAttempts:      3,
	}
}

// DB 带事务重试的 SQLite 句柄
type DB struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Open 打开（必要时创建）数据库
func Open(config Config, logger *zap.Logger) (*DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	gdb, err := gorm.Open(sqlite.Open(config.Path), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", config.Path, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	maxOpen := config.MaxOpenConns
	if config.Path == MemoryPath || maxOpen < 1 {
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	d := &DB{
		db:     gdb,
		sqlDB:  sqlDB,
		config: config,
		logger: logger.With(zap.String("component", "sqlite")),
	}
	d.logger.Debug("database opened",
		zap.String("path", config.Path),
		zap.Int("max_open_conns", maxOpen),
	)
	return d, nil
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// Gorm 返回 GORM 实例
func (d *DB) Gorm() *gorm.DB {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.db
}

// Migrate 自动迁移给定模型
func (d *DB) Migrate(models ...any) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.db.AutoMigrate(models...)
}

// Ping 检查数据库连接
func (d *DB) Ping(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	return d.sqlDB.PingContext(ctx)
}

// Close 关闭数据库，重复调用安全
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.sqlDB.Close()
}

// =============================================================================
// 🔄 事务管理
// =============================================================================

// txBackoff 锁冲突重试的退避策略：50ms 起步，每次翻倍
var txBackoff = retry.Policy{
	BaseDelay:  50 * time.Millisecond,
	MaxDelay:   2 * time.Second,
	Multiplier: 2.0,
}

// TransactionFunc 事务函数类型
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction 在事务中执行函数，遇到锁冲突时按指数退避重试
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	attempts := d.config.TxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		d.mu.RLock()
		if d.closed {
			d.mu.RUnlock()
			return ErrClosed
		}
		db := d.db
		d.mu.RUnlock()

		err := db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return err
		}

		d.logger.Warn("transaction failed, retrying",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if err := retry.Sleep(ctx, txBackoff.Delay(i)); err != nil {
			return err
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", attempts, lastErr)
}

// isRetryableError 判断 SQLite 错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"database is locked", "sqlite_busy", "database table is locked", "bad connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
