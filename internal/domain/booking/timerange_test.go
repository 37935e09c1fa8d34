package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeRange_Overlaps(t *testing.T) {
	tests := []struct {
		name string
		a    TimeRange
		b    TimeRange
		want bool
	}{
		{"完全に一致", NewTimeRange(9*60, 2), NewTimeRange(9*60, 2), true},
		{"後半が重なる", NewTimeRange(9*60, 2), NewTimeRange(10*60, 2), true},
		{"内包する", NewTimeRange(8*60, 5), NewTimeRange(10*60, 1), true},
		{"端点が接するだけ", NewTimeRange(9*60, 1), NewTimeRange(10*60, 1), false},
		{"前に接するだけ", NewTimeRange(10*60, 1), NewTimeRange(9*60, 1), false},
		{"離れている", NewTimeRange(7*60, 1), NewTimeRange(15*60, 2), false},
		{"30分ずれて重なる", NewTimeRange(9*60+30, 1), NewTimeRange(10*60, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "対称であること")
		})
	}
}

func TestParseTimeSlot(t *testing.T) {
	t.Run("HH:MM形式を分に変換できる", func(t *testing.T) {
		m, err := ParseTimeSlot("09:30")
		require.NoError(t, err)
		assert.Equal(t, 570, m)
	})

	tests := []struct {
		name string
		slot string
	}{
		{"空文字", ""},
		{"1桁の時", "9:00"},
		{"秒付き", "09:00:00"},
		{"区切りなし", "0900"},
		{"24時", "24:00"},
		{"60分", "10:60"},
	}
	for _, tt := range tests {
		t.Run(tt.name+"はエラー", func(t *testing.T) {
			_, err := ParseTimeSlot(tt.slot)
			assert.ErrorIs(t, err, ErrValidation)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "time_slot", ve.Field)
		})
	}
}

func TestTimeRange_String(t *testing.T) {
	assert.Equal(t, "09:00〜11:00", NewTimeRange(9*60, 2).String())
	assert.Equal(t, "21:30〜23:30", NewTimeRange(21*60+30, 2).String())
}
