package booking

import (
	"fmt"
	"regexp"
	"strconv"
)

var timeSlotPattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// TimeRange は0時からの経過分で表した半開区間 [Start, End)
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTimeRange は開始分と時間数から区間を作る
func NewTimeRange(startMinutes, durationHours int) TimeRange {
	return TimeRange{Start: startMinutes, End: startMinutes + durationHours*60}
}

// Overlaps は区間が重なるかを返す。端点が接するだけでは重ならない
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && r.End > other.Start
}

// Overlaps は a と b が重なるかを返す
func Overlaps(a, b TimeRange) bool {
	return a.Overlaps(b)
}

func (r TimeRange) String() string {
	return FormatMinutes(r.Start) + "〜" + FormatMinutes(r.End)
}

// FormatMinutes は経過分を "HH:MM" に整形する
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseTimeSlot は "HH:MM" を0時からの経過分に変換する
func ParseTimeSlot(slot string) (int, error) {
	if !timeSlotPattern.MatchString(slot) {
		return 0, &ValidationError{Field: "time_slot", Reason: "時間帯はHH:MM形式で指定してください"}
	}
	hour, _ := strconv.Atoi(slot[:2])
	minute, _ := strconv.Atoi(slot[3:])
	if hour > 23 || minute > 59 {
		return 0, &ValidationError{Field: "time_slot", Reason: "時間帯が不正です"}
	}
	return hour*60 + minute, nil
}
