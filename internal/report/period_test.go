package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/apperr"
	"github.com/vasiliy-maslov/storefront/internal/report"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPeriodWindow(t *testing.T) {
	// Wednesday afternoon.
	now := time.Date(2024, time.May, 15, 15, 42, 7, 0, time.UTC)

	tests := []struct {
		name      string
		period    report.Period
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"empty means daily", "", date(2024, time.May, 15), date(2024, time.May, 16)},
		{"daily", report.PeriodDaily, date(2024, time.May, 15), date(2024, time.May, 16)},
		{"weekly starts monday", report.PeriodWeekly, date(2024, time.May, 13), date(2024, time.May, 20)},
		{"monthly", report.PeriodMonthly, date(2024, time.May, 1), date(2024, time.June, 1)},
		{"quarterly is ninety days", report.PeriodQuarterly, date(2024, time.April, 1), date(2024, time.June, 30)},
		{"yearly", report.PeriodYearly, date(2024, time.January, 1), date(2025, time.January, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := report.PeriodWindow(tt.period, now)
			require.NoError(t, err)
			assert.True(t, tt.wantStart.Equal(start), "start: got %v, want %v", start, tt.wantStart)
			assert.True(t, tt.wantEnd.Equal(end), "end: got %v, want %v", end, tt.wantEnd)
		})
	}
}

func TestPeriodWindow_WeeklyEdges(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"monday midnight", date(2024, time.May, 13), date(2024, time.May, 13)},
		{"sunday late", time.Date(2024, time.May, 19, 23, 59, 59, 0, time.UTC), date(2024, time.May, 13)},
		{"across month", date(2024, time.March, 2), date(2024, time.February, 26)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := report.PeriodWindow(report.PeriodWeekly, tt.now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(start), "got %v", start)
			assert.Equal(t, 7*24*time.Hour, end.Sub(start))
			assert.Equal(t, time.Monday, start.Weekday())
		})
	}
}

func TestPeriodWindow_IndependentOfTimeOfDay(t *testing.T) {
	periods := []report.Period{report.PeriodDaily, report.PeriodWeekly, report.PeriodMonthly, report.PeriodQuarterly, report.PeriodYearly}
	morning := time.Date(2024, time.November, 6, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2024, time.November, 6, 23, 59, 59, 0, time.UTC)

	for _, p := range periods {
		s1, e1, err := report.PeriodWindow(p, morning)
		require.NoError(t, err)
		s2, e2, err := report.PeriodWindow(p, evening)
		require.NoError(t, err)

		assert.True(t, s1.Equal(s2), "period %s start differs", p)
		assert.True(t, e1.Equal(e2), "period %s end differs", p)
		assert.False(t, morning.Before(s1), "period %s must contain now", p)
		assert.True(t, evening.Before(e1), "period %s must contain now", p)
	}
}

func TestPeriodWindow_ConvertsToUTC(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	// 2024-05-16 02:00 in Manila is still the 15th in UTC.
	now := time.Date(2024, time.May, 16, 2, 0, 0, 0, manila)

	start, _, err := report.PeriodWindow(report.PeriodDaily, now)
	require.NoError(t, err)
	assert.True(t, date(2024, time.May, 15).Equal(start))
}

func TestPeriodWindow_Invalid(t *testing.T) {
	_, _, err := report.PeriodWindow("fortnightly", time.Now())
	require.ErrorIs(t, err, report.ErrInvalidPeriod)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
