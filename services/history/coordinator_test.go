package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"streakio/events"
	"streakio/services/entry"
	"streakio/services/streak"
	"streakio/services/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStreakWatcher struct {
	mu    sync.Mutex
	calls int
	chans []chan streak.Snapshot
}

func (f *fakeStreakWatcher) Watch(ctx context.Context, ID string) <-chan streak.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan streak.Snapshot, 16)
	f.chans = append(f.chans, ch)
	f.calls++
	return ch
}

func (f *fakeStreakWatcher) push(s streak.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chans[len(f.chans)-1] <- s
}

func (f *fakeStreakWatcher) watchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeEntryWatcher struct {
	mu    sync.Mutex
	chans []chan entry.Snapshot
}

func (f *fakeEntryWatcher) Watch(ctx context.Context, streakID string) <-chan entry.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan entry.Snapshot, 16)
	f.chans = append(f.chans, ch)
	return ch
}

func (f *fakeEntryWatcher) push(s entry.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chans[len(f.chans)-1] <- s
}

type fakeUsers struct {
	users map[string]user.User
}

func (f *fakeUsers) GetUser(ctx context.Context, ID string) (*user.User, error) {
	u, ok := f.users[ID]
	if !ok {
		return nil, user.NotFound
	}
	return &u, nil
}

type fixture struct {
	streaks  *fakeStreakWatcher
	entries  *fakeEntryWatcher
	notifier *events.Notifier
	co       *Coordinator
	cancel   context.CancelFunc
}

func now() time.Time {
	return time.Date(2025, time.March, 9, 15, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T, known map[string]user.User) *fixture {
	t.Helper()
	return newFixtureWith(t, &fakeUsers{users: known})
}

func newFixtureWith(t *testing.T, users UserGetter) *fixture {
	t.Helper()
	f := &fixture{
		streaks:  &fakeStreakWatcher{},
		entries:  &fakeEntryWatcher{},
		notifier: events.NewNotifier(),
	}
	f.co = NewCoordinator(Config{
		Streaks:  f.streaks,
		Entries:  f.entries,
		Users:    users,
		Notifier: f.notifier,
		StreakID: "streak-1",
		ViewerID: "A",
		Location: time.UTC,
		Now:      now,
	})
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)
	go f.co.Run(ctx)

	// Wait for the first Watch pair before pushing snapshots.
	require.Eventually(t, func() bool { return f.streaks.watchCalls() > 0 }, time.Second, time.Millisecond)
	return f
}

// nextView reads views until pred holds, failing the test on timeout.
// Conflated delivery means intermediate views may be skipped.
func nextView(t *testing.T, f *fixture, pred func(View) bool) View {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-f.co.Updates():
			require.True(t, ok, "updates closed before the expected view arrived")
			if pred(v) {
				return v
			}
		case <-deadline:
			t.Fatal("timed out waiting for view")
		}
	}
}

func testStreak(participants ...string) *streak.Streak {
	return &streak.Streak{
		ID:           "streak-1",
		Title:        "Morning run",
		CreatorID:    "A",
		Participants: participants,
	}
}

func knownUsers() map[string]user.User {
	return map[string]user.User{
		"A": {ID: "A", Email: "ann@x.com"},
		"B": {ID: "B", Email: "bob@x.com"},
	}
}

func TestLoadingThenReady(t *testing.T) {
	f := newFixture(t, knownUsers())

	f.streaks.push(streak.Snapshot{Streak: testStreak("A", "B")})
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: now()},
	}})

	v := nextView(t, f, func(v View) bool { return !v.Loading && v.ErrorMessage == "" && len(v.UserEntries) == 2 })
	require.Len(t, v.DateHeaders, WindowDays)
	assert.True(t, v.HasLoggedToday)
	assert.Equal(t, "ann", v.UserEntries[0].UserName)
}

func TestNothingEmittedUntilBothStreamsArrive(t *testing.T) {
	f := newFixture(t, knownUsers())

	f.streaks.push(streak.Snapshot{Streak: testStreak("A")})

	// Only the loading view should be observable; no aggregated view can
	// exist before the entries snapshot arrives.
	select {
	case v := <-f.co.Updates():
		assert.True(t, v.Loading)
	case <-time.After(100 * time.Millisecond):
	}
	select {
	case v, ok := <-f.co.Updates():
		if ok {
			assert.True(t, v.Loading, "got an aggregated view without an entries snapshot")
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBurstCoalescesToFinalView(t *testing.T) {
	f := newFixture(t, knownUsers())

	f.streaks.push(streak.Snapshot{Streak: testStreak("A", "B")})
	f.entries.push(entry.Snapshot{})

	// Three rapid changes; the final view must reflect the last one.
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: now().AddDate(0, 0, -3)},
	}})
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: now().AddDate(0, 0, -3)},
		{ID: "2", UserID: "B", Timestamp: now().AddDate(0, 0, -1)},
	}})
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "3", UserID: "A", Timestamp: now()},
	}})

	v := nextView(t, f, func(v View) bool {
		return !v.Loading && v.HasLoggedToday
	})
	// Last-arriving data only: A logged today, B's row is now all false.
	for _, r := range v.UserEntries {
		if r.UserID == "B" {
			for _, logged := range r.EntriesByDate {
				assert.False(t, logged)
			}
		}
	}
}

func TestSubscriptionErrorRetainsLastViewAndStopsUpdating(t *testing.T) {
	f := newFixture(t, knownUsers())

	f.streaks.push(streak.Snapshot{Streak: testStreak("A")})
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: now()},
	}})
	ready := nextView(t, f, func(v View) bool { return !v.Loading && len(v.UserEntries) == 1 })

	f.entries.push(entry.Snapshot{Err: errors.New("permission denied")})
	errView := nextView(t, f, func(v View) bool { return v.ErrorMessage != "" })
	assert.Contains(t, errView.ErrorMessage, "permission denied")
	assert.Equal(t, ready.UserEntries, errView.UserEntries, "last-known rows are retained")

	// Further data must not produce new aggregated views while errored.
	f.entries.push(entry.Snapshot{Entries: nil})
	select {
	case v, ok := <-f.co.Updates():
		if ok {
			assert.NotEmpty(t, v.ErrorMessage, "view updated after subscription failure")
		}
	case <-time.After(150 * time.Millisecond):
	}
}

// blockingUsers parks every lookup until release is closed, so a test can
// hold a recomputation in flight while the streams move on.
type blockingUsers struct {
	started chan struct{}
	release chan struct{}
}

func (f *blockingUsers) GetUser(ctx context.Context, ID string) (*user.User, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}
	select {
	case <-f.release:
	case <-ctx.Done():
	}
	return &user.User{ID: ID, Email: "ann@x.com"}, nil
}

func TestErrorViewSurvivesInFlightComputation(t *testing.T) {
	users := &blockingUsers{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	f := newFixtureWith(t, users)

	f.streaks.push(streak.Snapshot{Streak: testStreak("A")})
	f.entries.push(entry.Snapshot{Entries: []entry.StreakEntry{
		{ID: "1", UserID: "A", Timestamp: now()},
	}})

	// The recomputation is now parked inside the participant lookup.
	select {
	case <-users.started:
	case <-time.After(time.Second):
		t.Fatal("recomputation never started")
	}

	f.entries.push(entry.Snapshot{Err: errors.New("permission denied")})
	errView := nextView(t, f, func(v View) bool { return v.ErrorMessage != "" })
	assert.Contains(t, errView.ErrorMessage, "permission denied")

	// Releasing the lookup lets the pre-failure computation land. Its
	// result must be discarded, not published over the error view.
	close(users.release)
	select {
	case v, ok := <-f.co.Updates():
		if ok {
			assert.NotEmpty(t, v.ErrorMessage, "stale computation overwrote the error view")
		}
	case <-time.After(150 * time.Millisecond):
	}
}

func TestStreakNotFound(t *testing.T) {
	f := newFixture(t, knownUsers())

	f.streaks.push(streak.Snapshot{})
	f.entries.push(entry.Snapshot{})

	v := nextView(t, f, func(v View) bool { return v.ErrorMessage != "" })
	assert.Equal(t, "streak not found", v.ErrorMessage)
}

func TestUnresolvableParticipantIsDropped(t *testing.T) {
	f := newFixture(t, map[string]user.User{
		"A": {ID: "A", Email: "ann@x.com"},
	})

	f.streaks.push(streak.Snapshot{Streak: testStreak("A", "ghost")})
	f.entries.push(entry.Snapshot{})

	v := nextView(t, f, func(v View) bool { return !v.Loading && v.ErrorMessage == "" && len(v.UserEntries) > 0 })
	require.Len(t, v.UserEntries, 1)
	assert.Equal(t, "A", v.UserEntries[0].UserID)
	assert.Len(t, v.DateHeaders, WindowDays)
}

func TestInvalidationSignalResubscribes(t *testing.T) {
	f := newFixture(t, knownUsers())
	before := f.streaks.watchCalls()

	f.notifier.Notify()

	require.Eventually(t, func() bool {
		return f.streaks.watchCalls() == before+1
	}, time.Second, time.Millisecond, "expected a fresh Watch after the invalidation signal")

	// The new session works end to end.
	f.streaks.push(streak.Snapshot{Streak: testStreak("A")})
	f.entries.push(entry.Snapshot{})
	nextView(t, f, func(v View) bool { return !v.Loading && v.ErrorMessage == "" })
}

func TestTeardownClosesUpdates(t *testing.T) {
	f := newFixture(t, knownUsers())
	f.cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-f.co.Updates():
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond, "updates channel should close after teardown")
}
