package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

// ListFilter は予約一覧の絞り込み条件
type ListFilter struct {
	Status    Status
	StartDate *time.Time
	EndDate   *time.Time
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByIDForUpdate はトランザクション内で行ロックを取って予約を取得する
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Booking, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, b *Booking) error

	// LockDates は同じ日付への書き込みを直列化する（トランザクション必須）
	LockDates(ctx context.Context, tx transaction.Tx, dates ...time.Time) error

	// ListActiveByDate はキャンセル以外の予約を取得する。tx が nil の場合はトランザクション外で読む
	ListActiveByDate(ctx context.Context, tx transaction.Tx, date time.Time, excludeID string) ([]*Booking, error)

	// CountCreatedSince は email による since 以降の予約作成数を返す
	CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error)

	// List は予約日降順・開始時刻昇順で一覧を返す
	List(ctx context.Context, filter ListFilter) ([]*Booking, error)

	// CountByStatus は状態ごとの件数を返す
	CountByStatus(ctx context.Context) (map[Status]int, error)
}
