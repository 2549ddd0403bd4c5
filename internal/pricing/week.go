package pricing

import "time"

// WeekLayout is the day/month/year layout used in week range labels.
const WeekLayout = "02/01/2006"

// WeekSeparator joins the two dates of a week range label.
const WeekSeparator = " - "

// WeekStart returns midnight of the Monday on or before t, in t's location.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// WeekRange returns the Monday-Sunday label for the week containing t,
// e.g. "12/10/2026 - 18/10/2026".
func WeekRange(t time.Time) string {
	start := WeekStart(t)
	end := start.AddDate(0, 0, 6)
	return start.Format(WeekLayout) + WeekSeparator + end.Format(WeekLayout)
}

// ParseWeekRange parses a label produced by WeekRange and returns its Monday.
func ParseWeekRange(label string) (time.Time, bool) {
	if len(label) < len(WeekLayout) {
		return time.Time{}, false
	}
	start, err := time.Parse(WeekLayout, label[:len(WeekLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return start, true
}
