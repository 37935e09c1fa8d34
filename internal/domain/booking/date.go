package booking

import "time"

// DateLayout は予約日の表現形式
const DateLayout = "2006-01-02"

// ParseDate は "YYYY-MM-DD" をUTCの0時として解釈する
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "booking_date", Reason: "日付はYYYY-MM-DD形式で指定してください"}
	}
	return d, nil
}

// DateOf は t のローカル日付をUTCの0時に正規化する
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween は from から to までの暦日数を返す
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// FormatDate は予約日を文字列にする
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}
