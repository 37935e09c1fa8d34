//go:build integration
// +build integration

package postgres

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-arena-booking/internal/config"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	cfg := config.Load()

	db, err := NewConnection(&cfg.Database)
	if err != nil {
		t.Skipf("DB接続エラー: %v", err)
	}

	_, file, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
	_, err = RunMigrations(db.DB, migrations)
	require.NoError(t, err)

	db.MustExec("DELETE FROM bookings")
	t.Cleanup(func() {
		db.Exec("DELETE FROM bookings")
		db.Exec("DELETE FROM admin_users")
		db.Close()
	})
	return db
}

func newTestBooking(t *testing.T, date, slot string, duration int) *booking.Booking {
	t.Helper()
	contact, err := booking.NewContact("Test User", "test@example.com", "0821234567")
	require.NoError(t, err)
	s, err := booking.NewSlot(date, slot, duration)
	require.NoError(t, err)
	return booking.NewBooking(contact, s, duration*350)
}

func createInTx(t *testing.T, txm *TxManager, repo *BookingRepository, b *booking.Booking) error {
	t.Helper()
	ctx := context.Background()
	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := repo.LockDates(ctx, tx, b.BookingDate); err != nil {
		return err
	}
	if err := repo.Create(ctx, tx, b); err != nil {
		return err
	}
	return tx.Commit()
}

func TestBookingRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db, 5*time.Second)
	txm := NewTxManager(db)

	b := newTestBooking(t, "2030-01-10", "10:00", 2)
	require.NoError(t, createInTx(t, txm, repo, b))
	require.NotEmpty(t, b.ID)

	got, err := repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "10:00", got.TimeSlot)
	assert.Equal(t, 600, got.StartMinute)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.Equal(t, "2030-01-10", booking.FormatDate(got.BookingDate))

	t.Run("存在しないID", func(t *testing.T) {
		_, err := repo.GetByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})

	t.Run("UUID形式でないID", func(t *testing.T) {
		_, err := repo.GetByID(context.Background(), "not-a-uuid")
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})
}

func TestBookingRepository_ExclusionConstraint(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db, 5*time.Second)
	txm := NewTxManager(db)

	require.NoError(t, createInTx(t, txm, repo, newTestBooking(t, "2030-01-11", "10:00", 2)))

	err := createInTx(t, txm, repo, newTestBooking(t, "2030-01-11", "11:00", 1))
	assert.ErrorIs(t, err, booking.ErrTimeConflict)

	// 終了時刻ちょうどに始まる予約は重ならない
	assert.NoError(t, createInTx(t, txm, repo, newTestBooking(t, "2030-01-11", "12:00", 1)))

	active, err := repo.ListActiveByDate(context.Background(), nil, booking.DateOf(time.Date(2030, 1, 11, 0, 0, 0, 0, time.UTC)), "")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, 600, active[0].StartMinute)
	assert.Equal(t, 720, active[1].StartMinute)
}

func TestBookingRepository_ConcurrentCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db, 5*time.Second)
	txm := NewTxManager(db)

	const goroutines = 10
	var (
		wg        sync.WaitGroup
		successes int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := createInTx(t, txm, repo, newTestBooking(t, "2030-01-12", "18:00", 2)); err == nil {
				atomic.AddInt32(&successes, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes)
}

func TestBookingRepository_ListAndCount(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db, 5*time.Second)
	txm := NewTxManager(db)
	ctx := context.Background()

	require.NoError(t, createInTx(t, txm, repo, newTestBooking(t, "2030-02-01", "09:00", 1)))
	require.NoError(t, createInTx(t, txm, repo, newTestBooking(t, "2030-02-01", "07:00", 1)))
	later := newTestBooking(t, "2030-02-03", "09:00", 1)
	require.NoError(t, createInTx(t, txm, repo, later))

	all, err := repo.List(ctx, booking.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, later.ID, all[0].ID)
	assert.Equal(t, 420, all[1].StartMinute)

	start := booking.DateOf(time.Date(2030, 2, 2, 0, 0, 0, 0, time.UTC))
	filtered, err := repo.List(ctx, booking.ListFilter{Status: booking.StatusPending, StartDate: &start})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	count, err := repo.CountCreatedSince(ctx, "TEST@example.com", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	stats, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats[booking.StatusPending])
	assert.Equal(t, 0, stats[booking.StatusCancelled])
}

func TestBookingRepository_UpdateForUpdate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewBookingRepository(db, 5*time.Second)
	txm := NewTxManager(db)
	ctx := context.Background()

	b := newTestBooking(t, "2030-03-01", "10:00", 1)
	require.NoError(t, createInTx(t, txm, repo, b))

	tx, err := txm.Begin(ctx)
	require.NoError(t, err)
	locked, err := repo.GetByIDForUpdate(ctx, tx, b.ID)
	require.NoError(t, err)
	require.NoError(t, locked.ChangeStatus(booking.StatusCancelled))
	require.NoError(t, repo.Update(ctx, tx, locked))
	require.NoError(t, tx.Commit())
	// コミット後のロールバックはエラーにならない
	assert.NoError(t, tx.Rollback())

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)

	// キャンセル済みの枠は再び予約できる
	assert.NoError(t, createInTx(t, txm, repo, newTestBooking(t, "2030-03-01", "10:00", 1)))
}

func TestAdminDirectory_IsAdmin(t *testing.T) {
	db := setupTestDB(t)
	dir := NewAdminDirectory(db, 5*time.Second)
	db.MustExec("INSERT INTO admin_users (email) VALUES ('Owner@Arena.co.za') ON CONFLICT DO NOTHING")

	ok, err := dir.IsAdmin(context.Background(), "owner@arena.co.za")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.IsAdmin(context.Background(), "someone@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPitchRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPitchRepository(db, 5*time.Second)

	pitches, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, pitches)
	assert.Equal(t, "Main Arena", pitches[0].Name)
	assert.Contains(t, pitches[0].Features, "Floodlights")
}
