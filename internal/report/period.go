package report

import (
	"time"

	"github.com/vasiliy-maslov/storefront/internal/apperr"
)

type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

const quarterLength = 90 * 24 * time.Hour

var ErrInvalidPeriod = apperr.New(apperr.KindValidation, "Invalid period specified")

// PeriodWindow returns the half-open UTC window [start, end) that period
// covers at now. An empty period means daily.
func PeriodWindow(period Period, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case "", PeriodDaily:
		return day, day.AddDate(0, 0, 1), nil
	case PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	case PeriodQuarterly:
		month := time.Month((int(now.Month())-1)/3*3 + 1)
		start := time.Date(now.Year(), month, 1, 0, 0, 0, 0, time.UTC)
		return start, start.Add(quarterLength), nil
	case PeriodYearly:
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
}
