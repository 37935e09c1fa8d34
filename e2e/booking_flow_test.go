package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingBody struct {
	ID          string `json:"id"`
	Reference   string `json:"reference"`
	BookingDate string `json:"booking_date"`
	TimeSlot    string `json:"time_slot"`
	EndTime     string `json:"end_time"`
	Duration    int    `json:"duration"`
	TotalPrice  int    `json:"total_price"`
	Status      string `json:"status"`
}

type resultEnvelope struct {
	Data struct {
		Success  bool         `json:"success"`
		Booking  bookingBody  `json:"booking"`
		Previous *bookingBody `json:"previous"`
		Message  string       `json:"message"`
	} `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Field    string `json:"field"`
		Conflict *struct {
			Date  string `json:"date"`
			Start string `json:"start"`
			End   string `json:"end"`
		} `json:"conflict"`
	} `json:"error"`
}

func daysFromNow(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func bookingRequest(email, date, slot string, duration int) map[string]interface{} {
	return map[string]interface{}{
		"customer_name": "Thabo Nkosi",
		"email":         email,
		"phone":         "082 123 4567",
		"booking_date":  date,
		"time_slot":     slot,
		"duration":      duration,
	}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]interface{}](t, rec.Body.Bytes())
	assert.Equal(t, "ok", resp["status"])
}

// TestE2E_ListPitches はピッチ一覧をテスト
func TestE2E_ListPitches(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodGet, "/api/v1/pitches", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[struct {
		Data struct {
			Pitches []struct {
				PitchID int    `json:"pitch_id"`
				Name    string `json:"name"`
			} `json:"pitches"`
			Count int `json:"count"`
		} `json:"data"`
	}](t, rec.Body.Bytes())
	require.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, 1, resp.Data.Pitches[0].PitchID)
	assert.Equal(t, "Main Arena", resp.Data.Pitches[0].Name)
}

// TestE2E_CompleteBookingJourney は予約から変更・キャンセルまでの一連の流れをテスト
func TestE2E_CompleteBookingJourney(t *testing.T) {
	server := getTestServer(t)

	customer := "journey@example.com"
	date := daysFromNow(10)
	newDate := daysFromNow(12)
	var bookingID string

	// 1. 空き状況確認
	t.Run("空き状況確認", func(t *testing.T) {
		body := map[string]interface{}{"booking_date": date, "time_slot": "18:00", "duration": 2}
		rec := server.Request(http.MethodPost, "/api/v1/bookings/availability", body, "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[struct {
			Data struct {
				Available bool `json:"available"`
			} `json:"data"`
		}](t, rec.Body.Bytes())
		assert.True(t, resp.Data.Available)
	})

	// 2. 予約作成
	t.Run("予約作成", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest(customer, date, "18:00", 2), "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		resp := decode[resultEnvelope](t, rec.Body.Bytes())
		assert.True(t, resp.Data.Success)
		assert.Equal(t, "pending", resp.Data.Booking.Status)
		assert.Equal(t, 700, resp.Data.Booking.TotalPrice)
		assert.Equal(t, "20:00", resp.Data.Booking.EndTime)
		assert.Len(t, resp.Data.Booking.Reference, 8)
		bookingID = resp.Data.Booking.ID
		require.NotEmpty(t, bookingID)
	})

	// 3. 同じ時間帯は埋まっている
	t.Run("重複する時間帯は空いていない", func(t *testing.T) {
		body := map[string]interface{}{"booking_date": date, "time_slot": "19:00", "duration": 1}
		rec := server.Request(http.MethodPost, "/api/v1/bookings/availability", body, "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[struct {
			Data struct {
				Available bool `json:"available"`
				Conflict  struct {
					Start string `json:"start"`
					End   string `json:"end"`
				} `json:"conflict"`
			} `json:"data"`
		}](t, rec.Body.Bytes())
		assert.False(t, resp.Data.Available)
		assert.Equal(t, "18:00", resp.Data.Conflict.Start)
		assert.Equal(t, "20:00", resp.Data.Conflict.End)
	})

	// 4. 確認メール
	t.Run("確認メールが送信される", func(t *testing.T) {
		server.Dispatcher.Wait()
		assert.Len(t, server.Mailbox.To(customer), 1)
		assert.Len(t, server.Mailbox.To(operatorEmail), 1)
	})

	// 5. 管理者が予約を確定
	t.Run("予約確定", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/admin/bookings/%s/status", bookingID)
		rec := server.Request(http.MethodPatch, path, map[string]string{"status": "confirmed"}, server.AdminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[resultEnvelope](t, rec.Body.Bytes())
		assert.Equal(t, "confirmed", resp.Data.Booking.Status)
	})

	// 6. 管理者が日時を変更
	t.Run("日時変更", func(t *testing.T) {
		body := map[string]interface{}{"booking_date": newDate, "time_slot": "09:00", "duration": 3, "reason": "天候不良"}
		path := fmt.Sprintf("/api/v1/admin/bookings/%s", bookingID)
		rec := server.Request(http.MethodPut, path, body, server.AdminToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[resultEnvelope](t, rec.Body.Bytes())
		assert.Equal(t, newDate, resp.Data.Booking.BookingDate)
		assert.Equal(t, "09:00", resp.Data.Booking.TimeSlot)
		assert.Equal(t, 1050, resp.Data.Booking.TotalPrice)
		assert.Equal(t, "confirmed", resp.Data.Booking.Status)
		require.NotNil(t, resp.Data.Previous)
		assert.Equal(t, date, resp.Data.Previous.BookingDate)
		assert.Equal(t, "18:00", resp.Data.Previous.TimeSlot)
	})

	// 7. 元の時間帯は空く
	t.Run("元の時間帯が空く", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("second@example.com", date, "18:00", 2), "")
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	// 8. キャンセル
	t.Run("キャンセル", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/admin/bookings/%s/status", bookingID)
		rec := server.Request(http.MethodPatch, path, map[string]string{"status": "cancelled"}, server.AdminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = server.Request(http.MethodGet, "/api/v1/admin/bookings/"+bookingID, nil, server.AdminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[struct {
			Data struct {
				Booking bookingBody `json:"booking"`
			} `json:"data"`
		}](t, rec.Body.Bytes())
		assert.Equal(t, "cancelled", resp.Data.Booking.Status)
	})

	// 9. 一覧
	t.Run("状態で絞り込んだ一覧", func(t *testing.T) {
		rec := server.Request(http.MethodGet, "/api/v1/admin/bookings?status=pending", nil, server.AdminToken)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[struct {
			Data struct {
				Bookings []bookingBody `json:"bookings"`
				Count    int           `json:"count"`
			} `json:"data"`
		}](t, rec.Body.Bytes())
		require.Equal(t, 1, resp.Data.Count)
		assert.Equal(t, date, resp.Data.Bookings[0].BookingDate)
	})
}

// TestE2E_TimeConflict は時間帯の重複をテスト
func TestE2E_TimeConflict(t *testing.T) {
	server := getTestServer(t)
	date := daysFromNow(5)

	rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("first@example.com", date, "10:00", 2), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	t.Run("重なる時間帯は409", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("second@example.com", date, "11:00", 1), "")
		require.Equal(t, http.StatusConflict, rec.Code)

		resp := decode[errorEnvelope](t, rec.Body.Bytes())
		assert.Equal(t, "TIME_CONFLICT", resp.Error.Code)
		require.NotNil(t, resp.Error.Conflict)
		assert.Equal(t, date, resp.Error.Conflict.Date)
		assert.Equal(t, "10:00", resp.Error.Conflict.Start)
		assert.Equal(t, "12:00", resp.Error.Conflict.End)
	})

	t.Run("終了時刻ちょうどの開始は予約できる", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("third@example.com", date, "12:00", 1), "")
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}

// TestE2E_ConcurrentBooking は同じ時間帯への同時予約で1件だけ成功することをテスト
func TestE2E_ConcurrentBooking(t *testing.T) {
	server := getTestServer(t)
	date := daysFromNow(20)

	const concurrency = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := fmt.Sprintf("racer%d@example.com", i)
			rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest(email, date, "15:00", 2), "")
			mu.Lock()
			defer mu.Unlock()
			switch rec.Code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, concurrency-1, conflicts)
}

// TestE2E_Validation は入力エラーをテスト
func TestE2E_Validation(t *testing.T) {
	server := getTestServer(t)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantCode string
	}{
		{
			name:     "過去日",
			body:     bookingRequest("past@example.com", daysFromNow(-1), "10:00", 1),
			wantCode: "PAST_DATE",
		},
		{
			name:     "営業時間外",
			body:     bookingRequest("late@example.com", daysFromNow(3), "22:00", 1),
			wantCode: "OUT_OF_HOURS",
		},
		{
			name:     "利用時間が長すぎる",
			body:     bookingRequest("long@example.com", daysFromNow(3), "10:00", 11),
			wantCode: "INVALID_DURATION",
		},
		{
			name:     "受付期間外",
			body:     bookingRequest("far@example.com", daysFromNow(400), "10:00", 1),
			wantCode: "HORIZON_EXCEEDED",
		},
		{
			name:     "メールアドレス不正",
			body:     bookingRequest("not-an-email", daysFromNow(3), "10:00", 1),
			wantCode: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := server.Request(http.MethodPost, "/api/v1/bookings", tt.body, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			resp := decode[errorEnvelope](t, rec.Body.Bytes())
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

// TestE2E_RateLimit は同一メールアドレスからの連続予約をテスト
func TestE2E_RateLimit(t *testing.T) {
	server := getTestServer(t)
	email := "busy@example.com"

	for i := 0; i < 5; i++ {
		slot := fmt.Sprintf("%02d:00", 8+i*2)
		rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest(email, daysFromNow(30), slot, 1), "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("BUSY@example.com", daysFromNow(31), "10:00", 1), "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	resp := decode[errorEnvelope](t, rec.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", resp.Error.Code)
}

// TestE2E_AdminAuthorization は管理者エンドポイントの認可をテスト
func TestE2E_AdminAuthorization(t *testing.T) {
	server := getTestServer(t)

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantCode   string
	}{
		{name: "トークンなし", token: "", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "不正なトークン", token: "garbage", wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "管理者以外", token: server.OutsiderToken, wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := server.Request(http.MethodGet, "/api/v1/admin/bookings", nil, tt.token)
			require.Equal(t, tt.wantStatus, rec.Code)

			resp := decode[errorEnvelope](t, rec.Body.Bytes())
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}

	t.Run("存在しない予約は404", func(t *testing.T) {
		rec := server.Request(http.MethodGet, "/api/v1/admin/bookings/00000000-0000-0000-0000-000000000000", nil, server.AdminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// TestE2E_ModificationWindow は変更期限をテスト
func TestE2E_ModificationWindow(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodPost, "/api/v1/bookings", bookingRequest("soon@example.com", daysFromNow(1), "10:00", 1), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[resultEnvelope](t, rec.Body.Bytes()).Data.Booking.ID

	body := map[string]interface{}{"booking_date": daysFromNow(7), "time_slot": "10:00", "duration": 1}
	rec = server.Request(http.MethodPut, "/api/v1/admin/bookings/"+id, body, server.AdminToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "MODIFICATION_WINDOW", decode[errorEnvelope](t, rec.Body.Bytes()).Error.Code)
}
