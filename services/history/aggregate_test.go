package history

import (
	"testing"
	"time"

	"streakio/services/entry"
	"streakio/services/user"
	"streakio/utils"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = civil.Date{Year: 2025, Month: time.March, Day: 9}

func at(d civil.Date, hour int) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, time.UTC)
}

func row(t *testing.T, rows []UserDailyEntryStatus, userID string) UserDailyEntryStatus {
	t.Helper()
	for _, r := range rows {
		if r.UserID == userID {
			return r
		}
	}
	t.Fatalf("no row for user %s", userID)
	return UserDailyEntryStatus{}
}

func bools(r UserDailyEntryStatus, dates []civil.Date) []bool {
	out := make([]bool, len(dates))
	for i, d := range dates {
		out[i] = r.EntriesByDate[d]
	}
	return out
}

func TestWindowIsSevenAscendingDatesEndingToday(t *testing.T) {
	dates := Window(today)

	require.Len(t, dates, WindowDays)
	assert.Equal(t, today.AddDays(-6), dates[0])
	assert.Equal(t, today, dates[6])
	for i := 1; i < len(dates); i++ {
		assert.Equal(t, dates[i-1].AddDays(1), dates[i], "dates must ascend by one day")
	}
}

func TestWindowIgnoresEntryCount(t *testing.T) {
	// The window depends only on the reference date.
	assert.Equal(t, Window(today), Window(today))
	other := civil.Date{Year: 2024, Month: time.December, Day: 31}
	assert.Equal(t, other.AddDays(-6), Window(other)[0])
}

func TestTwoParticipantScenario(t *testing.T) {
	users := []user.User{
		{ID: "A", Email: "a@x.com"},
		{ID: "B", Email: "b@x.com"},
	}
	entries := []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: at(today.AddDays(-1), 9)},
		{ID: "2", UserID: "A", Timestamp: at(today, 20), Notes: utils.ToPointer("evening run")},
		{ID: "3", UserID: "B", Timestamp: at(today.AddDays(-2), 12)},
	}

	rows, loggedToday := Build(users, entries, "A", today, time.UTC)

	require.Len(t, rows, 2)
	dates := Window(today)
	assert.Equal(t, []bool{false, false, false, false, false, true, true}, bools(row(t, rows, "A"), dates))
	assert.Equal(t, []bool{false, false, false, false, true, false, false}, bools(row(t, rows, "B"), dates))
	assert.True(t, loggedToday)
}

func TestDuplicateSameDayEntriesAreIdempotent(t *testing.T) {
	users := []user.User{{ID: "A", Email: "a@x.com"}}
	base := []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: at(today, 8)},
	}
	dup := append(base, entry.StreakEntry{ID: "2", UserID: "A", Timestamp: at(today, 21)})

	rowsBase, flagBase := Build(users, base, "A", today, time.UTC)
	rowsDup, flagDup := Build(users, dup, "A", today, time.UTC)

	assert.Equal(t, rowsBase, rowsDup)
	assert.Equal(t, flagBase, flagDup)
}

func TestPendingServerTimestampNeverMatches(t *testing.T) {
	users := []user.User{{ID: "A", Email: "a@x.com"}}
	entries := []entry.StreakEntry{
		{ID: "1", UserID: "A"}, // not yet committed
	}

	rows, loggedToday := Build(users, entries, "A", today, time.UTC)

	assert.Equal(t, []bool{false, false, false, false, false, false, false}, bools(row(t, rows, "A"), Window(today)))
	assert.False(t, loggedToday)
}

func TestEmptyParticipantsGivesEmptyTable(t *testing.T) {
	rows, loggedToday := Build(nil, []entry.StreakEntry{
		{ID: "1", UserID: "ghost", Timestamp: at(today, 10)},
	}, "viewer", today, time.UTC)

	assert.Empty(t, rows)
	assert.False(t, loggedToday)
}

func TestUnresolvedParticipantOmittedWithoutAffectingOthers(t *testing.T) {
	// Participant "B" could not be resolved and is absent from users.
	users := []user.User{{ID: "A", Email: "a@x.com"}}
	entries := []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: at(today, 10)},
		{ID: "2", UserID: "B", Timestamp: at(today, 11)},
	}

	rows, _ := Build(users, entries, "A", today, time.UTC)

	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].UserID)
	assert.True(t, rows[0].EntriesByDate[today])
	assert.Len(t, Window(today), WindowDays)
}

func TestViewerFlagStaysConsistentWithTable(t *testing.T) {
	users := []user.User{{ID: "A", Email: "a@x.com"}, {ID: "B", Email: "b@x.com"}}
	entries := []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: at(today, 10)},
		{ID: "2", UserID: "B", Timestamp: at(today, 10)},
	}

	rows, loggedToday := Build(users, entries, "A", today, time.UTC)
	assert.Equal(t, row(t, rows, "A").EntriesByDate[today], loggedToday)
	assert.True(t, loggedToday)

	// Removing all of the viewer's entries for today flips the flag back
	// without touching other users' rows.
	remaining := entries[1:]
	rows, loggedToday = Build(users, remaining, "A", today, time.UTC)
	assert.False(t, loggedToday)
	assert.False(t, row(t, rows, "A").EntriesByDate[today])
	assert.True(t, row(t, rows, "B").EntriesByDate[today])
}

func TestBucketsInViewerZone(t *testing.T) {
	users := []user.User{{ID: "A", Email: "a@x.com"}}
	// 23:30 UTC on the day before "today" is already "today" at UTC+2.
	loc := time.FixedZone("UTC+2", 2*60*60)
	entries := []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: time.Date(today.Year, today.Month, today.Day-1, 23, 30, 0, 0, time.UTC)},
	}

	rows, loggedToday := Build(users, entries, "A", today, loc)

	assert.True(t, row(t, rows, "A").EntriesByDate[today])
	assert.True(t, loggedToday)
}
