package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

// BookingRepository はメモリ上の予約ストア
type BookingRepository struct {
	txm      *TxManager
	bookings map[string]*booking.Booking
}

// NewBookingRepository は txm のトランザクションで書き込むリポジトリを作成する
func NewBookingRepository(txm *TxManager) *BookingRepository {
	return &BookingRepository{txm: txm, bookings: make(map[string]*booking.Booking)}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	t, err := r.txm.unwrap(tx)
	if err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	id := b.ID

	r.txm.data.Lock()
	r.bookings[id] = b.Clone()
	r.txm.data.Unlock()

	t.record(func() { delete(r.bookings, id) })
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.txm.data.RLock()
	defer r.txm.data.RUnlock()
	return r.get(id)
}

// GetByIDForUpdate は書き込みトランザクションが直列化されているため GetByID と同じ
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	if _, err := r.txm.unwrap(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	t, err := r.txm.unwrap(tx)
	if err != nil {
		return err
	}

	r.txm.data.Lock()
	defer r.txm.data.Unlock()
	prev, ok := r.bookings[b.ID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	r.bookings[b.ID] = b.Clone()
	t.record(func() { r.bookings[prev.ID] = prev })
	return nil
}

// LockDates は Begin で直列化済みのため何もしない
func (r *BookingRepository) LockDates(ctx context.Context, tx transaction.Tx, dates ...time.Time) error {
	_, err := r.txm.unwrap(tx)
	return err
}

func (r *BookingRepository) ListActiveByDate(ctx context.Context, tx transaction.Tx, date time.Time, excludeID string) ([]*booking.Booking, error) {
	if tx != nil {
		if _, err := r.txm.unwrap(tx); err != nil {
			return nil, err
		}
	}
	day := booking.FormatDate(date)

	r.txm.data.RLock()
	defer r.txm.data.RUnlock()
	var result []*booking.Booking
	for _, b := range r.bookings {
		if b.ID == excludeID || !b.Status.IsActive() || booking.FormatDate(b.BookingDate) != day {
			continue
		}
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartMinute < result[j].StartMinute })
	return result, nil
}

func (r *BookingRepository) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	r.txm.data.RLock()
	defer r.txm.data.RUnlock()
	var n int
	for _, b := range r.bookings {
		if strings.EqualFold(b.Email, email) && !b.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *BookingRepository) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Booking, error) {
	r.txm.data.RLock()
	defer r.txm.data.RUnlock()
	result := make([]*booking.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.StartDate != nil && b.BookingDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && b.BookingDate.After(*filter.EndDate) {
			continue
		}
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].BookingDate.Equal(result[j].BookingDate) {
			return result[i].BookingDate.After(result[j].BookingDate)
		}
		return result[i].StartMinute < result[j].StartMinute
	})
	return result, nil
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[booking.Status]int, error) {
	r.txm.data.RLock()
	defer r.txm.data.RUnlock()
	counts := map[booking.Status]int{
		booking.StatusPending:   0,
		booking.StatusConfirmed: 0,
		booking.StatusCancelled: 0,
	}
	for _, b := range r.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

func (r *BookingRepository) get(id string) (*booking.Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return b.Clone(), nil
}
