package api

import (
	"time"
)

// formatChatTime renders a chat-list timestamp relative to now: the clock
// time for today, "yesterday", the weekday for anything under a week old
// and the date for everything older.
func formatChatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	t = t.Local()
	now = now.Local()

	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	day := time.Date(y1, m1, d1, 0, 0, 0, 0, time.Local)
	today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.Local)

	switch days := int(today.Sub(day).Hours() / 24); {
	case days <= 0:
		return t.Format("15:04")
	case days == 1:
		return "yesterday"
	case days < 7:
		return t.Format("Mon")
	default:
		return t.Format("02.01.2006")
	}
}
