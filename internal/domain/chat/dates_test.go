package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDate(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		proposed string
		want     DateSpec
	}{
		{"no date", "spent 50 on chai", "", Today()},
		{"explicit today", "spent 50 today", "TODAY", Today()},
		{"iso proposal", "lunch", "2024-07-15", Exact("2024-07-15")},
		{"month day year beats today marker", "lunch on july 10 2024", "TODAY", Exact("2024-07-10")},
		{"day month year", "10 August 2025 books", "", Exact("2025-08-10")},
		{"abbreviated month", "movie on 3rd sep 2024", "", Exact("2024-09-03")},
		{"slash date is day first", "paid 08/10/2025", "", Exact("2025-10-08")},
		{"iso in message", "rent 2024-07-01", "", Exact("2024-07-01")},
		{"phrase echoed as proposal", "dinner", "Aug 3 2024", Exact("2024-08-03")},
		{"month day without year", "add lunch expense on august 10", "", NeedsYear("august 10")},
		{"day month without year", "xerox on 5 March", "", NeedsYear("5 march")},
		{"short slash date", "coffee on 15/03", "", NeedsYear("15/03")},
		{"fraction is not a date", "spent 50 on pizza, split 1/2", "", Today()},
		{"may as a word", "bought 3 may flowers", "", Today()},
		{"may at the end", "xerox on 5 may", "", NeedsYear("5 may")},
		{"may before punctuation", "5 may, lunch 60", "", NeedsYear("5 may")},
		{"impossible slash date", "spent 50 on books on 31/02/2024", "", Invalid("31/02/2024")},
		{"impossible slash date with iso proposal", "spent 50 on books on 31/02/2024", "2024-02-31", Invalid("31/02/2024")},
		{"impossible day month year", "movie 30 feb 2025", "", Invalid("30 feb 2025")},
		{"impossible iso proposal", "lunch", "2024-02-31", Invalid("2024-02-31")},
		{"valid date wins over impossible one", "31/02/2024 or 2024-03-01", "", Exact("2024-03-01")},
		{"need year marker", "whatever", "NEED_YEAR:aug 5", NeedsYear("aug 5")},
		{"vague phrase", "spent 200 last week on snacks", "", NeedsClarification("last week")},
		{"clarification marker", "whatever", "NEED_CLARIFICATION:last month", NeedsClarification("last month")},
		{"yesterday", "auto fare yesterday", "", Exact("2025-08-19")},
		{"invalid proposal falls back to message", "tea", "someday", Today()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveDate(tt.message, tt.proposed, testNow))
		})
	}
}

func TestDateSpec_Time(t *testing.T) {
	now := time.Date(2025, 8, 20, 18, 30, 15, 0, time.UTC)

	got, err := Today().Time(now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = Exact("2024-07-15").Time(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 15, 18, 30, 15, 0, time.UTC), got)

	_, err = NeedsYear("august 10").Time(now)
	assert.Error(t, err)

	_, err = Exact("15-07-2024").Time(now)
	assert.Error(t, err)
}

func TestDateSpec_StringAndAmbiguous(t *testing.T) {
	assert.Equal(t, "TODAY", Today().String())
	assert.Equal(t, "2024-07-15", Exact("2024-07-15").String())
	assert.Equal(t, "NEED_YEAR:august 10", NeedsYear("august 10").String())
	assert.Equal(t, "NEED_CLARIFICATION:last week", NeedsClarification("last week").String())

	assert.False(t, Today().Ambiguous())
	assert.False(t, Exact("2024-07-15").Ambiguous())
	assert.True(t, NeedsYear("august 10").Ambiguous())
	assert.True(t, NeedsClarification("last month").Ambiguous())
	assert.True(t, Invalid("31/02/2024").Ambiguous())
	assert.Equal(t, "NEED_CLARIFICATION:31/02/2024", Invalid("31/02/2024").String())

	_, err := Invalid("31/02/2024").Time(testNow)
	assert.Error(t, err)
}

func TestFormatLongDate(t *testing.T) {
	assert.Equal(t, "July 15, 2024", FormatLongDate(time.Date(2024, 7, 15, 9, 0, 0, 0, time.UTC)))
	assert.Equal(t, "January 2, 2006", FormatLongDate(time.Date(2006, 1, 2, 0, 0, 0, 0, time.UTC)))
}
