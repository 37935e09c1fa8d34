package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/config"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

const connectRetryDelay = 2 * time.Second

// NewConnection はPostgreSQLへ接続し、プール設定を適用する。
// ConnectRetries が正の場合、DBの起動待ちとして一定間隔で再試行する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 0; ; attempt++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		if attempt >= cfg.ConnectRetries {
			return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
		}
		logger.Warn("データベースに接続できません。再試行します",
			zap.Int("attempt", attempt+1), zap.String("host", cfg.Host), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Ping はヘルスチェック用
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

// withTimeout は timeout が正の場合のみ ctx に期限を付ける
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
