package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
)

const (
	pqExclusionViolation   = "23P01"
	pqInvalidTextRepresent = "22P02"
)

const bookingColumns = `id, customer_name, email, phone, booking_date, time_slot, start_minute, duration, total_price, status, created_at, updated_at`

type bookingRow struct {
	ID           string    `db:"id"`
	CustomerName string    `db:"customer_name"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	BookingDate  time.Time `db:"booking_date"`
	TimeSlot     string    `db:"time_slot"`
	StartMinute  int       `db:"start_minute"`
	Duration     int       `db:"duration"`
	TotalPrice   int       `db:"total_price"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type BookingRepository struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewBookingRepository は文ごとに timeout を適用するリポジトリを作成する
func NewBookingRepository(db *sqlx.DB, timeout time.Duration) *BookingRepository {
	return &BookingRepository{db: db, timeout: timeout}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := requireTx(tx, "予約作成")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `INSERT INTO bookings (customer_name, email, phone, booking_date, time_slot, start_minute, duration, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err = sqlTx.QueryRowContext(ctx, query,
		b.CustomerName, b.Email, b.Phone, booking.FormatDate(b.BookingDate), b.TimeSlot,
		b.StartMinute, b.Duration, b.TotalPrice, string(b.Status), b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		if isExclusionViolation(err) {
			return fmt.Errorf("%w: 同時に登録された予約と重複しました", booking.ErrTimeConflict)
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.get(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*booking.Booking, error) {
	sqlTx, err := requireTx(tx, "行ロック")
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()
	return r.get(ctx, sqlTx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	sqlTx, err := requireTx(tx, "予約更新")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE bookings SET booking_date = $1, time_slot = $2, start_minute = $3, duration = $4, total_price = $5, status = $6, updated_at = $7 WHERE id = $8`
	result, err := sqlTx.ExecContext(ctx, query,
		booking.FormatDate(b.BookingDate), b.TimeSlot, b.StartMinute, b.Duration, b.TotalPrice, string(b.Status), b.UpdatedAt, b.ID,
	)
	if err != nil {
		if isExclusionViolation(err) {
			return fmt.Errorf("%w: 同時に登録された予約と重複しました", booking.ErrTimeConflict)
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	if rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// LockDates は予約日ごとのアドバイザリロックをトランザクション終了まで保持する。
// デッドロックを避けるため日付順に取得する
func (r *BookingRepository) LockDates(ctx context.Context, tx transaction.Tx, dates ...time.Time) error {
	sqlTx, err := requireTx(tx, "日付ロック")
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	keys := make([]string, 0, len(dates))
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		key := "booking-date:" + booking.FormatDate(d)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("日付ロックの取得に失敗: %w", err)
		}
	}
	return nil
}

func (r *BookingRepository) ListActiveByDate(ctx context.Context, tx transaction.Tx, date time.Time, excludeID string) ([]*booking.Booking, error) {
	q, err := queryer(r.db, tx, "日付別予約の取得")
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE booking_date = $1 AND status <> 'cancelled' AND ($2 = '' OR id::text <> $2)
		ORDER BY start_minute`
	var rows []bookingRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, booking.FormatDate(date), excludeID); err != nil {
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) CountCreatedSince(ctx context.Context, email string, since time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var count int
	query := `SELECT COUNT(*) FROM bookings WHERE lower(email) = lower($1) AND created_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, email, since); err != nil {
		return 0, fmt.Errorf("予約数の取得に失敗: %w", err)
	}
	return count, nil
}

func (r *BookingRepository) List(ctx context.Context, filter booking.ListFilter) ([]*booking.Booking, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var (
		conds []string
		args  []interface{}
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, booking.FormatDate(*filter.StartDate))
		conds = append(conds, fmt.Sprintf("booking_date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, booking.FormatDate(*filter.EndDate))
		conds = append(conds, fmt.Sprintf("booking_date <= $%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY booking_date DESC, start_minute ASC`

	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toEntities(rows), nil
}

func (r *BookingRepository) CountByStatus(ctx context.Context) (map[booking.Status]int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM bookings GROUP BY status`); err != nil {
		return nil, fmt.Errorf("予約数の集計に失敗: %w", err)
	}
	counts := map[booking.Status]int{
		booking.StatusPending:   0,
		booking.StatusConfirmed: 0,
		booking.StatusCancelled: 0,
	}
	for _, row := range rows {
		counts[booking.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func (r *BookingRepository) get(ctx context.Context, q sqlx.QueryerContext, query, id string) (*booking.Booking, error) {
	var row bookingRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return toEntity(&row), nil
}

func toEntity(row *bookingRow) *booking.Booking {
	return &booking.Booking{
		ID:           row.ID,
		CustomerName: row.CustomerName,
		Email:        row.Email,
		Phone:        row.Phone,
		BookingDate:  booking.DateOf(row.BookingDate),
		TimeSlot:     strings.TrimSpace(row.TimeSlot),
		StartMinute:  row.StartMinute,
		Duration:     row.Duration,
		TotalPrice:   row.TotalPrice,
		Status:       booking.Status(row.Status),
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func toEntities(rows []bookingRow) []*booking.Booking {
	result := make([]*booking.Booking, len(rows))
	for i := range rows {
		result[i] = toEntity(&rows[i])
	}
	return result
}

func isExclusionViolation(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pqExclusionViolation
}

// isInvalidText はUUIDとして解釈できないIDを渡したときのエラーかを返す
func isInvalidText(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == pqInvalidTextRepresent
}
