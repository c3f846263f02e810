package history

import (
	"context"
	"time"

	"streakio/events"
	"streakio/services/entry"
	"streakio/services/streak"
	"streakio/services/user"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type StreakWatcher interface {
	Watch(ctx context.Context, ID string) <-chan streak.Snapshot
}

type EntryWatcher interface {
	Watch(ctx context.Context, streakID string) <-chan entry.Snapshot
}

type UserGetter interface {
	GetUser(ctx context.Context, ID string) (*user.User, error)
}

type Config struct {
	Streaks  StreakWatcher
	Entries  EntryWatcher
	Users    UserGetter
	Notifier *events.Notifier
	StreakID string
	ViewerID string
	// Location buckets timestamps into calendar days; defaults to the
	// process-local zone.
	Location *time.Location
	// Now is overridable for tests.
	Now func() time.Time
}

// Coordinator joins the live streak document and entry collection streams
// for one streak, recomputes the aggregated history view on every emission
// of either, and publishes immutable View snapshots. A data-change signal on
// the notifier tears the subscriptions down and re-establishes them.
type Coordinator struct {
	cfg     Config
	updates chan View
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		cfg:     cfg,
		updates: make(chan View, 1),
	}
}

// Updates delivers the latest view. Delivery is conflated: a slow consumer
// only ever sees the most recent snapshot. The channel is closed once Run
// returns; no emissions follow the close.
func (c *Coordinator) Updates() <-chan View {
	return c.updates
}

// Run drives the subscriptions until ctx is cancelled. It owns the updates
// channel and closes it on return.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.updates)

	var busCh <-chan struct{}
	if c.cfg.Notifier != nil {
		id, ch := c.cfg.Notifier.Subscribe()
		defer c.cfg.Notifier.Unsubscribe(id)
		busCh = ch
	}

	for {
		if restart := c.session(ctx, busCh); !restart {
			return
		}
		log.Debug().Str("streakId", c.cfg.StreakID).Msg("data change signal, re-subscribing")
	}
}

type computed struct {
	gen  uint64
	view View
}

// session holds one pair of live subscriptions. It returns true when a
// data-change signal asks for a fresh pair and false on cancellation.
func (c *Coordinator) session(ctx context.Context, busCh <-chan struct{}) bool {
	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	streakCh := c.cfg.Streaks.Watch(sctx, c.cfg.StreakID)
	entryCh := c.cfg.Entries.Watch(sctx, c.cfg.StreakID)
	c.publish(View{Loading: true})

	var (
		current     *streak.Streak
		entries     []entry.StreakEntry
		haveStreak  bool
		haveEntries bool
		failed      bool
		gen         uint64
		last        View
	)
	results := make(chan computed)

	// kick starts a recomputation from the latest joint (streak, entries)
	// pair. The generation number makes the most recently started
	// computation authoritative; earlier in-flight results are discarded
	// when they land.
	kick := func() {
		if failed || !haveStreak || !haveEntries {
			return
		}
		if current == nil {
			last = View{ErrorMessage: "streak not found"}
			c.publish(last)
			return
		}
		gen++
		g := gen
		st := *current
		es := make([]entry.StreakEntry, len(entries))
		copy(es, entries)
		go func() {
			view := c.compute(sctx, st, es)
			select {
			case results <- computed{gen: g, view: view}:
			case <-sctx.Done():
			}
		}()
	}

	fail := func(err error) {
		failed = true
		// Invalidate any computation still in flight; its result predates
		// the failure and must not overwrite the error view.
		gen++
		v := last
		v.Loading = false
		v.ErrorMessage = "failed to update streak details: " + err.Error()
		c.publish(v)
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-busCh:
			return true
		case snap, ok := <-streakCh:
			if !ok {
				streakCh = nil
				continue
			}
			if snap.Err != nil {
				fail(snap.Err)
				continue
			}
			current = snap.Streak
			haveStreak = true
			kick()
		case snap, ok := <-entryCh:
			if !ok {
				entryCh = nil
				continue
			}
			if snap.Err != nil {
				fail(snap.Err)
				continue
			}
			entries = snap.Entries
			haveEntries = true
			kick()
		case res := <-results:
			if res.gen != gen {
				// A newer computation has started since; stale result.
				continue
			}
			last = res.view
			c.publish(res.view)
		}
	}
}

func (c *Coordinator) compute(ctx context.Context, st streak.Streak, entries []entry.StreakEntry) View {
	participants := ResolveParticipants(ctx, c.cfg.Users, st.Participants)
	if len(participants) == 0 && len(st.Participants) > 0 {
		log.Warn().Str("streakId", st.ID).Msg("no participant details could be fetched")
	}
	today := civil.DateOf(c.cfg.Now().In(c.cfg.Location))
	rows, loggedToday := Build(participants, entries, c.cfg.ViewerID, today, c.cfg.Location)
	return View{
		DateHeaders:    Window(today),
		UserEntries:    rows,
		HasLoggedToday: loggedToday,
	}
}

// ResolveParticipants looks up every participant concurrently and joins the
// results, preserving order. A participant whose lookup fails is dropped
// from the result, not treated as fatal.
func ResolveParticipants(ctx context.Context, getter UserGetter, ids []string) []user.User {
	resolved := make([]*user.User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			u, err := getter.GetUser(gctx, id)
			if err != nil {
				log.Warn().Err(err).Str("userId", id).Msg("failed to get participant details")
				return nil
			}
			resolved[i] = u
			return nil
		})
	}
	_ = g.Wait()

	users := make([]user.User, 0, len(resolved))
	for _, u := range resolved {
		if u != nil {
			users = append(users, *u)
		}
	}
	return users
}

// publish replaces whatever view is pending so the consumer always reads
// the latest one.
func (c *Coordinator) publish(v View) {
	for {
		select {
		case c.updates <- v:
			return
		default:
			select {
			case <-c.updates:
			default:
			}
		}
	}
}
