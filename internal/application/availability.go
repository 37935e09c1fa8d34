package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-arena-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
)

const scheduleCacheTTL = 30 * time.Second

// AvailabilityChecker は候補の時間帯が既存予約と重ならないかを判定する
type AvailabilityChecker struct {
	repo  booking.Repository
	cache redisinfra.ScheduleCacheInterface
}

// NewAvailabilityChecker は AvailabilityChecker を作成する。cache は nil でもよい
func NewAvailabilityChecker(repo booking.Repository, cache redisinfra.ScheduleCacheInterface) *AvailabilityChecker {
	return &AvailabilityChecker{repo: repo, cache: cache}
}

// Check は tx 内で同じ日のキャンセル以外の予約を読み、最初に重なった予約を ConflictError で返す。
// excludeID の予約は判定から除外する
func (c *AvailabilityChecker) Check(ctx context.Context, tx transaction.Tx, slot booking.Slot, excludeID string) error {
	existing, err := c.repo.ListActiveByDate(ctx, tx, slot.Date, excludeID)
	if err != nil {
		return booking.Unavailable("予約の取得に失敗", err)
	}
	ranges := make([]booking.TimeRange, len(existing))
	for i, b := range existing {
		ranges[i] = b.Range()
	}
	return firstConflict(slot, ranges)
}

// Probe はトランザクション外で空き状況を判定する。キャッシュがあれば利用する
func (c *AvailabilityChecker) Probe(ctx context.Context, slot booking.Slot) error {
	ranges, err := c.dayRanges(ctx, slot.Date)
	if err != nil {
		return err
	}
	return firstConflict(slot, ranges)
}

// Invalidate は予約日のキャッシュを破棄する
func (c *AvailabilityChecker) Invalidate(ctx context.Context, dates ...time.Time) {
	if c.cache == nil || len(dates) == 0 {
		return
	}
	days := make([]string, len(dates))
	for i, d := range dates {
		days[i] = booking.FormatDate(d)
	}
	if err := c.cache.Invalidate(ctx, days...); err != nil {
		logger.Ctx(ctx).Warn("スケジュールキャッシュの無効化に失敗しました", zap.Strings("dates", days), zap.Error(err))
	}
}

func (c *AvailabilityChecker) dayRanges(ctx context.Context, date time.Time) ([]booking.TimeRange, error) {
	day := booking.FormatDate(date)
	if c.cache != nil {
		ranges, err := c.cache.Get(ctx, day)
		if err == nil {
			return ranges, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Ctx(ctx).Warn("スケジュールキャッシュの取得に失敗しました", zap.String("date", day), zap.Error(err))
		}
	}

	existing, err := c.repo.ListActiveByDate(ctx, nil, date, "")
	if err != nil {
		return nil, booking.Unavailable("予約の取得に失敗", err)
	}
	ranges := make([]booking.TimeRange, len(existing))
	for i, b := range existing {
		ranges[i] = b.Range()
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, day, ranges, scheduleCacheTTL); err != nil {
			logger.Ctx(ctx).Warn("スケジュールキャッシュの保存に失敗しました", zap.String("date", day), zap.Error(err))
		}
	}
	return ranges, nil
}

func firstConflict(slot booking.Slot, ranges []booking.TimeRange) error {
	candidate := slot.Range()
	for _, r := range ranges {
		if candidate.Overlaps(r) {
			return &booking.ConflictError{Date: booking.FormatDate(slot.Date), Range: r}
		}
	}
	return nil
}
