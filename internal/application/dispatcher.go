package application

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
)

const defaultNotifyTimeout = 10 * time.Second

// Dispatcher はメールとイベントを非同期に送信する。
// 送信の失敗はログに残すだけで呼び出し元には返さない
type Dispatcher struct {
	sender    notification.Sender
	publisher notification.Publisher
	timeout   time.Duration
	metrics   *metrics.Metrics
	wg        sync.WaitGroup
}

// NewDispatcher は Dispatcher を作成する。publisher は nil でもよい
func NewDispatcher(sender notification.Sender, publisher notification.Publisher, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &Dispatcher{sender: sender, publisher: publisher, timeout: timeout, metrics: m}
}

// Dispatch はメッセージとイベントの送信を開始してすぐに戻る
func (d *Dispatcher) Dispatch(ctx context.Context, messages []notification.Message, event *notification.Event) {
	if d == nil {
		return
	}
	base := context.WithoutCancel(ctx)

	for _, msg := range messages {
		if msg.To == "" || d.sender == nil {
			continue
		}
		d.wg.Add(1)
		go func(msg notification.Message) {
			defer d.wg.Done()
			sendCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := d.sender.Send(sendCtx, msg); err != nil {
				d.metrics.ObserveNotification("email", "failed")
				logger.Ctx(base).Warn("メール送信に失敗しました",
					zap.String("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
				return
			}
			d.metrics.ObserveNotification("email", "success")
		}(msg)
	}

	if event != nil && d.publisher != nil {
		d.wg.Add(1)
		go func(ev notification.Event) {
			defer d.wg.Done()
			pubCtx, cancel := context.WithTimeout(base, d.timeout)
			defer cancel()
			if err := d.publisher.Publish(pubCtx, ev); err != nil {
				d.metrics.ObserveNotification("event", "failed")
				logger.Ctx(base).Warn("イベント配信に失敗しました",
					zap.String("type", ev.Type), zap.String("booking_id", ev.BookingID), zap.Error(err))
				return
			}
			d.metrics.ObserveNotification("event", "success")
		}(*event)
	}
}

// Wait は送信中の通知がすべて終わるまで待つ
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
