package history

import (
	"time"

	"streakio/services/entry"
	"streakio/services/user"

	"cloud.google.com/go/civil"
)

// Window returns the WindowDays calendar dates ending at and including
// today, oldest first.
func Window(today civil.Date) []civil.Date {
	dates := make([]civil.Date, WindowDays)
	for i := range dates {
		dates[i] = today.AddDays(i - (WindowDays - 1))
	}
	return dates
}

// Build computes the attendance table for the given participants and the
// viewer's logged-today flag.
//
// participants must already be resolved user records; callers drop
// participants whose lookup failed before getting here. Entries whose server
// timestamp has not been committed yet (zero time) never match a date.
// Timestamps are bucketed into calendar days in loc, the viewer's zone.
func Build(participants []user.User, entries []entry.StreakEntry, viewerID string, today civil.Date, loc *time.Location) ([]UserDailyEntryStatus, bool) {
	if loc == nil {
		loc = time.Local
	}
	dates := Window(today)

	logged := make(map[string]map[civil.Date]bool)
	for _, e := range entries {
		if e.Timestamp.IsZero() {
			continue
		}
		day := civil.DateOf(e.Timestamp.In(loc))
		byDay := logged[e.UserID]
		if byDay == nil {
			byDay = make(map[civil.Date]bool)
			logged[e.UserID] = byDay
		}
		byDay[day] = true
	}

	statuses := make([]UserDailyEntryStatus, 0, len(participants))
	hasLoggedToday := false
	for _, u := range participants {
		byDate := make(map[civil.Date]bool, len(dates))
		for _, d := range dates {
			byDate[d] = logged[u.ID][d]
		}
		// The flag is read off the viewer's own row so the two can never
		// disagree.
		if u.ID == viewerID && byDate[today] {
			hasLoggedToday = true
		}
		statuses = append(statuses, UserDailyEntryStatus{
			UserID:        u.ID,
			UserName:      u.ResolvedName(),
			EntriesByDate: byDate,
		})
	}
	return statuses, hasLoggedToday
}
