package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// ScheduleCacheInterface は日ごとの予約済み時間帯キャッシュのインターフェース
type ScheduleCacheInterface interface {
	Get(ctx context.Context, date string) ([]booking.TimeRange, error)
	Set(ctx context.Context, date string, ranges []booking.TimeRange, ttl time.Duration) error
	Invalidate(ctx context.Context, dates ...string) error
}

// DayScheduleCache は空き状況照会用に、日ごとの予約済み時間帯をキャッシュする。
// 予約作成・変更の判定には使わない
type DayScheduleCache struct {
	client *redis.Client
}

// NewDayScheduleCache は新しいDayScheduleCacheインスタンスを作成する
func NewDayScheduleCache(client *redis.Client) *DayScheduleCache {
	return &DayScheduleCache{client: client}
}

// Get は予約日の予約済み時間帯をキャッシュから取得する
func (c *DayScheduleCache) Get(ctx context.Context, date string) ([]booking.TimeRange, error) {
	val, err := c.client.Get(ctx, c.scheduleKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var ranges []booking.TimeRange
	if err := json.Unmarshal(val, &ranges); err != nil {
		return nil, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return ranges, nil
}

// Set は予約日の予約済み時間帯をキャッシュに保存する
func (c *DayScheduleCache) Set(ctx context.Context, date string, ranges []booking.TimeRange, ttl time.Duration) error {
	if ranges == nil {
		ranges = []booking.TimeRange{}
	}
	val, err := json.Marshal(ranges)
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.scheduleKey(date), val, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は予約日のキャッシュを無効化する
func (c *DayScheduleCache) Invalidate(ctx context.Context, dates ...string) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, len(dates))
	for i, d := range dates {
		keys[i] = c.scheduleKey(d)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *DayScheduleCache) scheduleKey(date string) string {
	return fmt.Sprintf("schedule:%s", date)
}
