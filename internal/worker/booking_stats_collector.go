package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
)

// StatsSource は状態ごとの予約数を返すインターフェース
type StatsSource interface {
	BookingStats(ctx context.Context) (map[booking.Status]int, error)
}

// BookingStatsCollector は予約数を定期的に集計して active_bookings ゲージを更新するワーカー
type BookingStatsCollector struct {
	source   StatsSource
	metrics  *metrics.Metrics
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewBookingStatsCollector は新しいコレクターを作成
func NewBookingStatsCollector(source StatsSource, m *metrics.Metrics, interval time.Duration) *BookingStatsCollector {
	return &BookingStatsCollector{
		source:   source,
		metrics:  m,
		interval: interval,
		timeout:  interval / 2,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はコレクターを開始する。起動直後に一度集計する
func (c *BookingStatsCollector) Start(ctx context.Context) {
	logger.Info("予約統計コレクター開始", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.doneCh)

	c.collect(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("予約統計コレクター停止（コンテキストキャンセル）")
			return
		case <-c.stopCh:
			logger.Info("予約統計コレクター停止（シグナル受信）")
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

// Stop はコレクターを停止し、実行中の集計の終了を待つ
func (c *BookingStatsCollector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *BookingStatsCollector) collect(ctx context.Context) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	counts, err := c.source.BookingStats(ctx)
	if err != nil {
		logger.Warn("予約統計の集計に失敗", zap.Error(err))
		return
	}

	byStatus := make(map[string]int, len(counts))
	for status, n := range counts {
		byStatus[string(status)] = n
	}
	c.metrics.SetActiveBookings(byStatus)
	logger.Debug("予約統計を更新", zap.Any("counts", byStatus))
}
