package application

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

// MockIdentityResolver implements admin.IdentityResolver
type MockIdentityResolver struct {
	mock.Mock
}

func (m *MockIdentityResolver) Resolve(ctx context.Context, token string) (*admin.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*admin.Identity), args.Error(1)
}

// MockDirectory implements admin.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) IsAdmin(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

// MockPublisher implements notification.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event notification.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

// tokenResolver はトークンとメールアドレスの対応表で解決する
type tokenResolver map[string]string

func (r tokenResolver) Resolve(ctx context.Context, token string) (*admin.Identity, error) {
	email, ok := r[token]
	if !ok {
		return nil, admin.ErrInvalidToken
	}
	return &admin.Identity{UserID: "user-" + token, Email: email}, nil
}

// captureSender は送信したメールを記録する
type captureSender struct {
	mu   sync.Mutex
	sent []notification.Message
	err  error
}

func (s *captureSender) Send(ctx context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSender) Messages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Message(nil), s.sent...)
}

func (s *captureSender) Subjects() []string {
	var subjects []string
	for _, m := range s.Messages() {
		subjects = append(subjects, m.Subject)
	}
	return subjects
}

// failingRepo は指定したメソッドだけストレージ障害を返す
type failingRepo struct {
	booking.Repository
	failList  bool
	failCount bool
}

func (r *failingRepo) ListActiveByDate(ctx context.Context, tx transaction.Tx, date time.Time, excludeID string) ([]*booking.Booking, error) {
	if r.failList {
		return nil, errConnectionRefused
	}
	return r.Repository.ListActiveByDate(ctx, tx, date, excludeID)
}

func (r *failingRepo) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	if r.failCount {
		return 0, errConnectionRefused
	}
	return r.Repository.CountCreatedSince(ctx, email, since)
}

// staleReadRepo は GetByID で古い予約日を返し、LockDates の引数を記録する
type staleReadRepo struct {
	booking.Repository
	staleDate time.Time

	mu     sync.Mutex
	locked []string
}

func (r *staleReadRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stale := b.Clone()
	stale.BookingDate = r.staleDate
	return stale, nil
}

func (r *staleReadRepo) LockDates(ctx context.Context, tx transaction.Tx, dates ...time.Time) error {
	r.mu.Lock()
	for _, d := range dates {
		r.locked = append(r.locked, booking.FormatDate(d))
	}
	r.mu.Unlock()
	return r.Repository.LockDates(ctx, tx, dates...)
}

func (r *staleReadRepo) Locked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.locked...)
}
