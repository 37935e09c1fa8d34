package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-arena-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/sanosuguru/go-arena-booking/internal/application")

const (
	slotLockTTL        = 10 * time.Second
	slotLockRetries    = 5
	slotLockRetryDelay = 100 * time.Millisecond
)

// BookingServiceDeps は BookingService の依存関係
type BookingServiceDeps struct {
	TxManager   transaction.Manager
	Repo        booking.Repository
	Gate        *AdminGate
	LockManager redisinfra.LockManagerInterface   // nil の場合はDBロックのみ
	Cache       redisinfra.ScheduleCacheInterface // nil の場合はキャッシュしない
	Dispatcher  *Dispatcher
	Messages    *MessageBuilder
	Policy      booking.Policy
	Location    *time.Location
	Metrics     *metrics.Metrics
}

// BookingService は予約の作成・変更・状態更新・一覧を扱う
type BookingService struct {
	txManager   transaction.Manager
	repo        booking.Repository
	checker     *AvailabilityChecker
	gate        *AdminGate
	lockManager redisinfra.LockManagerInterface
	dispatcher  *Dispatcher
	messages    *MessageBuilder
	policy      booking.Policy
	location    *time.Location
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewBookingService(deps BookingServiceDeps) *BookingService {
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	messages := deps.Messages
	if messages == nil {
		messages = NewMessageBuilder("", DefaultPaymentDetails(), deps.Policy.ModificationCutoffDays)
	}
	return &BookingService{
		txManager:   deps.TxManager,
		repo:        deps.Repo,
		checker:     NewAvailabilityChecker(deps.Repo, deps.Cache),
		gate:        deps.Gate,
		lockManager: deps.LockManager,
		dispatcher:  deps.Dispatcher,
		messages:    messages,
		policy:      deps.Policy,
		location:    loc,
		metrics:     deps.Metrics,
		now:         time.Now,
	}
}

type CreateBookingInput struct {
	CustomerName string
	Email        string
	Phone        string
	BookingDate  string
	TimeSlot     string
	Duration     int
}

// CreateBooking は入力を検証し、空いていれば pending の予約を作成する
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.CreateBooking")
	defer span.End()

	b, err := s.createBooking(ctx, input)
	s.metrics.ObserveBooking("create", resultLabel(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID))
	logger.Ctx(ctx).Info("予約を作成しました",
		zap.String("booking_id", b.ID),
		zap.String("booking_date", booking.FormatDate(b.BookingDate)),
		zap.String("time_slot", b.TimeSlot),
		zap.Int("duration", b.Duration),
	)

	msgs, err := s.messages.Created(b)
	if err != nil {
		logger.Ctx(ctx).Error("通知メールの生成に失敗しました", zap.Error(err))
	}
	s.dispatcher.Dispatch(ctx, msgs, s.messages.Event(notification.EventBookingCreated, b, nil, ""))
	return b, nil
}

func (s *BookingService) createBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	contact, err := booking.NewContact(input.CustomerName, input.Email, input.Phone)
	if err != nil {
		return nil, err
	}
	slot, err := booking.NewSlot(input.BookingDate, input.TimeSlot, input.Duration)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckBookingDate(slot.Date, s.today()); err != nil {
		return nil, err
	}
	if err := s.policy.CheckHours(slot.StartMinute); err != nil {
		return nil, err
	}
	if err := s.policy.CheckDuration(slot.Duration); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, contact.Email); err != nil {
		return nil, err
	}

	b := booking.NewBooking(contact, slot, s.policy.Price(slot.Duration))
	err = s.withDateLock(ctx, []time.Time{slot.Date}, func() error {
		return transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			if err := s.repo.LockDates(ctx, tx, slot.Date); err != nil {
				return err
			}
			if err := s.checker.Check(ctx, tx, slot, ""); err != nil {
				return err
			}
			return s.repo.Create(ctx, tx, b)
		})
	})
	if err != nil {
		return nil, storeErr("予約の作成に失敗", err)
	}
	s.checker.Invalidate(ctx, slot.Date)
	return b, nil
}

// checkRateLimit は同じメールアドレスからの直近の作成数を数える。
// 件数を取得できない場合は受け付ける
func (s *BookingService) checkRateLimit(ctx context.Context, email string) error {
	if s.policy.RateLimitMax <= 0 {
		return nil
	}
	count, err := s.repo.CountCreatedSince(ctx, email, s.now().Add(-s.policy.RateLimitWindow))
	if err != nil {
		logger.Ctx(ctx).Warn("レート制限の確認に失敗したため処理を続行します", zap.Error(err))
		return nil
	}
	if count >= s.policy.RateLimitMax {
		return booking.ErrRateLimited
	}
	return nil
}

type ModifyBookingInput struct {
	BearerToken string
	BookingID   string
	NewDate     string
	NewTimeSlot string
	NewDuration int
	Reason      string
}

type ModifyBookingResult struct {
	Booking  *booking.Booking
	Previous *booking.Booking
}

// ModifyBooking は管理者の指示で予約日時を変更し confirmed にする
func (s *BookingService) ModifyBooking(ctx context.Context, input ModifyBookingInput) (*ModifyBookingResult, error) {
	ctx, span := tracer.Start(ctx, "BookingService.ModifyBooking")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", input.BookingID))

	identity, err := s.gate.Authorize(ctx, input.BearerToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := s.modifyBooking(ctx, input)
	s.metrics.ObserveBooking("modify", resultLabel(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info("予約を変更しました",
		zap.String("booking_id", result.Booking.ID),
		zap.String("admin", identity.Email),
		zap.String("from", booking.FormatDate(result.Previous.BookingDate)+" "+result.Previous.TimeSlot),
		zap.String("to", booking.FormatDate(result.Booking.BookingDate)+" "+result.Booking.TimeSlot),
	)

	msgs, err := s.messages.Modified(result.Booking, result.Previous, input.Reason)
	if err != nil {
		logger.Ctx(ctx).Error("通知メールの生成に失敗しました", zap.Error(err))
	}
	s.dispatcher.Dispatch(ctx, msgs, s.messages.Event(notification.EventBookingModified, result.Booking, result.Previous, input.Reason))
	return result, nil
}

func (s *BookingService) modifyBooking(ctx context.Context, input ModifyBookingInput) (*ModifyBookingResult, error) {
	if input.BookingID == "" {
		return nil, &booking.ValidationError{Field: "booking_id", Reason: "予約IDは必須です"}
	}
	slot, err := booking.NewSlot(input.NewDate, input.NewTimeSlot, input.NewDuration)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, storeErr("予約の取得に失敗", err)
	}
	today := s.today()
	if err := s.policy.CheckModificationWindow(current.BookingDate, today); err != nil {
		return nil, err
	}
	if err := s.policy.CheckNewDate(slot.Date, today); err != nil {
		return nil, err
	}
	if err := s.policy.CheckHours(slot.StartMinute); err != nil {
		return nil, err
	}
	if err := s.policy.CheckDuration(slot.Duration); err != nil {
		return nil, err
	}

	var result ModifyBookingResult
	dates := []time.Time{current.BookingDate, slot.Date}
	err = s.withDateLock(ctx, dates, func() error {
		return transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			if err := s.repo.LockDates(ctx, tx, dates...); err != nil {
				return err
			}
			b, err := s.repo.GetByIDForUpdate(ctx, tx, input.BookingID)
			if err != nil {
				return err
			}
			// ロック前に別の変更で日付が動いていた場合は移動元の日付もロックする
			if !b.BookingDate.Equal(current.BookingDate) && !b.BookingDate.Equal(slot.Date) {
				if err := s.repo.LockDates(ctx, tx, b.BookingDate); err != nil {
					return err
				}
			}
			// 読み直した予約日で期限を再確認する
			if err := s.policy.CheckModificationWindow(b.BookingDate, today); err != nil {
				return err
			}
			if err := s.checker.Check(ctx, tx, slot, b.ID); err != nil {
				return err
			}
			result.Previous = b.Clone()
			b.Reschedule(slot, s.policy.Price(slot.Duration))
			if err := s.repo.Update(ctx, tx, b); err != nil {
				return err
			}
			result.Booking = b
			return nil
		})
	})
	if err != nil {
		return nil, storeErr("予約の変更に失敗", err)
	}
	s.checker.Invalidate(ctx, result.Previous.BookingDate, result.Booking.BookingDate)
	return &result, nil
}

type UpdateStatusInput struct {
	BearerToken string
	BookingID   string
	Status      string
}

// UpdateStatus は管理者の指示で予約の状態を変更する。
// cancelled から戻す場合は時間帯が空いている必要がある
func (s *BookingService) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*booking.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", input.BookingID), attribute.String("booking.status", input.Status))

	identity, err := s.gate.Authorize(ctx, input.BearerToken)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	b, previous, err := s.updateStatus(ctx, input)
	s.metrics.ObserveBooking("status", resultLabel(err))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	logger.Ctx(ctx).Info("予約の状態を変更しました",
		zap.String("booking_id", b.ID),
		zap.String("admin", identity.Email),
		zap.String("from", string(previous)),
		zap.String("to", string(b.Status)),
	)

	msgs, err := s.messages.StatusChanged(b)
	if err != nil {
		logger.Ctx(ctx).Error("通知メールの生成に失敗しました", zap.Error(err))
	}
	s.dispatcher.Dispatch(ctx, msgs, s.messages.Event(notification.EventBookingStatusChanged, b, nil, ""))
	return b, nil
}

func (s *BookingService) updateStatus(ctx context.Context, input UpdateStatusInput) (*booking.Booking, booking.Status, error) {
	status, err := booking.ParseStatus(input.Status)
	if err != nil {
		return nil, "", err
	}
	if input.BookingID == "" {
		return nil, "", &booking.ValidationError{Field: "booking_id", Reason: "予約IDは必須です"}
	}

	current, err := s.repo.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, "", storeErr("予約の取得に失敗", err)
	}

	var (
		updated  *booking.Booking
		previous booking.Status
	)
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		// 日付ロック → 行ロックの順で取り、変更処理とのデッドロックを避ける
		if err := s.repo.LockDates(ctx, tx, current.BookingDate); err != nil {
			return err
		}
		b, err := s.repo.GetByIDForUpdate(ctx, tx, input.BookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(status) {
			return booking.ErrInvalidStatusChange
		}
		if !b.Status.IsActive() && status.IsActive() {
			if !b.BookingDate.Equal(current.BookingDate) {
				if err := s.repo.LockDates(ctx, tx, b.BookingDate); err != nil {
					return err
				}
			}
			if err := s.checker.Check(ctx, tx, b.Slot(), b.ID); err != nil {
				return err
			}
		}
		previous = b.Status
		if err := b.ChangeStatus(status); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, tx, b); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return nil, "", storeErr("予約状態の更新に失敗", err)
	}
	s.checker.Invalidate(ctx, updated.BookingDate)
	return updated, previous, nil
}

// GetBooking は管理者向けに予約を1件返す
func (s *BookingService) GetBooking(ctx context.Context, token, id string) (*booking.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.GetBooking")
	defer span.End()

	if _, err := s.gate.Authorize(ctx, token); err != nil {
		return nil, err
	}
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("予約の取得に失敗", err)
	}
	return b, nil
}

type ListBookingsInput struct {
	BearerToken string
	Status      string
	StartDate   string
	EndDate     string
}

// ListBookings は管理者向けに予約一覧を返す。Status が空または "all" の場合は絞り込まない
func (s *BookingService) ListBookings(ctx context.Context, input ListBookingsInput) ([]*booking.Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingService.ListBookings")
	defer span.End()

	if _, err := s.gate.Authorize(ctx, input.BearerToken); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var filter booking.ListFilter
	if input.Status != "" && input.Status != "all" {
		status, err := booking.ParseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if input.StartDate != "" {
		d, err := booking.ParseDate(input.StartDate)
		if err != nil {
			return nil, &booking.ValidationError{Field: "start_date", Reason: "日付はYYYY-MM-DD形式で指定してください"}
		}
		filter.StartDate = &d
	}
	if input.EndDate != "" {
		d, err := booking.ParseDate(input.EndDate)
		if err != nil {
			return nil, &booking.ValidationError{Field: "end_date", Reason: "日付はYYYY-MM-DD形式で指定してください"}
		}
		filter.EndDate = &d
	}

	bookings, err := s.repo.List(ctx, filter)
	if err != nil {
		span.RecordError(err)
		return nil, storeErr("予約一覧の取得に失敗", err)
	}
	return bookings, nil
}

type CheckAvailabilityInput struct {
	BookingDate string
	TimeSlot    string
	Duration    int
}

// AvailabilityResult は空き状況照会の結果
type AvailabilityResult struct {
	Available bool
	Message   string
	Conflict  *booking.TimeRange
}

// CheckAvailability は予約せずに空き状況を返す。
// 過去日・受付期間外・営業時間外は Available=false として理由を返す
func (s *BookingService) CheckAvailability(ctx context.Context, input CheckAvailabilityInput) (*AvailabilityResult, error) {
	ctx, span := tracer.Start(ctx, "BookingService.CheckAvailability")
	defer span.End()

	slot, err := booking.NewSlot(input.BookingDate, input.TimeSlot, input.Duration)
	if err != nil {
		return nil, err
	}
	if err := s.policy.CheckDuration(slot.Duration); err != nil {
		return nil, err
	}
	if err := s.policy.CheckBookingDate(slot.Date, s.today()); err != nil {
		return &AvailabilityResult{Available: false, Message: err.Error()}, nil
	}
	if err := s.policy.CheckHours(slot.StartMinute); err != nil {
		return &AvailabilityResult{Available: false, Message: err.Error()}, nil
	}

	err = s.checker.Probe(ctx, slot)
	var conflict *booking.ConflictError
	switch {
	case err == nil:
		return &AvailabilityResult{Available: true, Message: "指定の時間帯は予約可能です"}, nil
	case errors.As(err, &conflict):
		r := conflict.Range
		return &AvailabilityResult{Available: false, Message: conflict.Error(), Conflict: &r}, nil
	default:
		span.RecordError(err)
		return nil, err
	}
}

// BookingStats は状態ごとの予約数を返す
func (s *BookingService) BookingStats(ctx context.Context) (map[booking.Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, storeErr("予約数の集計に失敗", err)
	}
	return counts, nil
}

// withDateLock は予約日ごとの分散ロックを取ってから fn を実行する。
// ロックを取れない場合も DB 側の日付ロックで直列化されるため fn は実行する
func (s *BookingService) withDateLock(ctx context.Context, dates []time.Time, fn func() error) error {
	if s.lockManager == nil {
		return fn()
	}

	days := make([]string, len(dates))
	for i, d := range dates {
		days[i] = booking.FormatDate(d)
	}
	keys := redisinfra.DateLockKeys(days...)

	var locks []redisinfra.Lock
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			if err := locks[i].Release(context.WithoutCancel(ctx)); err != nil {
				logger.Ctx(ctx).Warn("ロック解放に失敗しました", zap.Error(err))
			}
		}
	}()

	for _, key := range keys {
		start := time.Now()
		lock, err := s.lockManager.AcquireLockWithRetry(ctx, key, slotLockTTL, slotLockRetries, slotLockRetryDelay)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.metrics.ObserveSlotLock("failed", time.Since(start))
			logger.Ctx(ctx).Warn("分散ロックを取得できないためDBロックで続行します", zap.String("key", key), zap.Error(err))
			continue
		}
		s.metrics.ObserveSlotLock("acquired", time.Since(start))
		locks = append(locks, lock)
	}
	return fn()
}

func (s *BookingService) today() time.Time {
	return booking.DateOf(s.now().In(s.location))
}

// storeErr はドメインエラーはそのまま返し、それ以外をストレージ障害として包む
func storeErr(op string, err error) error {
	if isDomainError(err) {
		return err
	}
	return booking.Unavailable(op, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		booking.ErrValidation,
		booking.ErrPastDate,
		booking.ErrHorizonExceeded,
		booking.ErrOutOfHours,
		booking.ErrInvalidDuration,
		booking.ErrRateLimited,
		booking.ErrTimeConflict,
		booking.ErrModificationWindow,
		booking.ErrBookingNotFound,
		booking.ErrInvalidStatus,
		booking.ErrStoreUnavailable,
		admin.ErrUnauthorized,
		admin.ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, booking.ErrTimeConflict):
		return "conflict"
	case errors.Is(err, booking.ErrStoreUnavailable):
		return "error"
	default:
		return "rejected"
	}
}
