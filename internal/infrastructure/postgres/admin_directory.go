package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// AdminDirectory は admin_users テーブルで管理者を判定する
type AdminDirectory struct {
	db      *sqlx.DB
	timeout time.Duration
}

func NewAdminDirectory(db *sqlx.DB, timeout time.Duration) *AdminDirectory {
	return &AdminDirectory{db: db, timeout: timeout}
}

func (d *AdminDirectory) IsAdmin(ctx context.Context, email string) (bool, error) {
	ctx, cancel := withTimeout(ctx, d.timeout)
	defer cancel()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM admin_users WHERE lower(email) = lower($1))`
	if err := d.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("管理者判定に失敗: %w", err)
	}
	return exists, nil
}
