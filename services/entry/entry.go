package entry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streakio/utils"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
)

type Service interface {
	// Log records a check-in for the user against the streak. The entry's
	// timestamp is assigned by the server. Returns the new entry ID.
	Log(ctx context.Context, streakID, userID string, notes *string) (string, error)

	// ListForStreak returns all entries for the streak, newest first.
	ListForStreak(ctx context.Context, streakID string) ([]StreakEntry, error)

	// RemoveForDate deletes every entry the user logged on the given
	// calendar day, in one atomic batch. Deleting nothing is a success.
	RemoveForDate(ctx context.Context, streakID, userID string, date civil.Date) error

	// HasLoggedOnDate reports whether the user has at least one committed
	// entry on the given calendar day.
	HasLoggedOnDate(ctx context.Context, streakID, userID string, date civil.Date) (bool, error)

	// Watch emits the full entry set for the streak on every remote change
	// until ctx is cancelled. The channel is closed after cancellation.
	Watch(ctx context.Context, streakID string) <-chan Snapshot
}

const collection = "streak_entries"

type service struct {
	db *firestore.Client
}

var _ Service = (*service)(nil)

func NewService(db *firestore.Client) Service {
	return &service{
		db: db,
	}
}

func (s *service) Log(ctx context.Context, streakID, userID string, notes *string) (string, error) {
	if streakID == "" || userID == "" {
		return "", errors.New("streak id and user id are required")
	}
	e := StreakEntry{
		StreakID: streakID,
		UserID:   userID,
		Notes:    notes,
	}
	ref := s.db.Collection(collection).NewDoc()
	if _, err := ref.Set(ctx, e); err != nil {
		return "", fmt.Errorf("failed to log entry for streak %s: %w", streakID, err)
	}
	return ref.ID, nil
}

func (s *service) ListForStreak(ctx context.Context, streakID string) ([]StreakEntry, error) {
	docs, err := s.streakQuery(streakID).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for streak %s: %w", streakID, err)
	}
	return decodeAll(docs)
}

// dayBounds returns the half-open UTC interval [start of day, start of next
// day) used to match server timestamps against a calendar date.
func dayBounds(date civil.Date) (time.Time, time.Time) {
	start := date.In(time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func (s *service) RemoveForDate(ctx context.Context, streakID, userID string, date civil.Date) error {
	if streakID == "" || userID == "" {
		return errors.New("streak id and user id are required")
	}
	start, end := dayBounds(date)
	docs, err := s.streakQuery(streakID).
		Where("userId", "==", userID).
		Where("timestamp", ">=", start).
		Where("timestamp", "<", end).
		Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("failed to query entries for removal: %w", err)
	}
	if len(docs) == 0 {
		// Nothing logged that day; not an error.
		return nil
	}

	batch := s.db.Batch()
	for _, doc := range docs {
		batch.Delete(doc.Ref)
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to delete %d entries: %w", len(docs), err)
	}
	log.Debug().
		Int("count", len(docs)).
		Str("streakId", streakID).
		Str("userId", userID).
		Msg("removed entries for day")
	return nil
}

func (s *service) HasLoggedOnDate(ctx context.Context, streakID, userID string, date civil.Date) (bool, error) {
	start, end := dayBounds(date)
	docs, err := s.streakQuery(streakID).
		Where("userId", "==", userID).
		Where("timestamp", ">=", start).
		Where("timestamp", "<", end).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to check entries for %s: %w", userID, err)
	}
	return len(docs) > 0, nil
}

func (s *service) Watch(ctx context.Context, streakID string) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		iter := s.streakQuery(streakID).
			OrderBy("timestamp", firestore.Desc).
			Snapshots(ctx)
		defer iter.Stop()
		for {
			qsnap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("streakId", streakID).Msg("entries listener failed")
				send(ctx, out, Snapshot{Err: err})
				return
			}
			docs, err := qsnap.Documents.GetAll()
			if err != nil {
				send(ctx, out, Snapshot{Err: err})
				continue
			}
			entries, err := decodeAll(docs)
			if err != nil {
				send(ctx, out, Snapshot{Err: err})
				continue
			}
			send(ctx, out, Snapshot{Entries: entries})
		}
	}()
	return out
}

func (s *service) streakQuery(streakID string) firestore.Query {
	return s.db.Collection(collection).Where("streakId", "==", streakID)
}

func decodeAll(docs []*firestore.DocumentSnapshot) ([]StreakEntry, error) {
	entries, err := utils.GetAllToStructs[StreakEntry](docs)
	if err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	for i, doc := range docs {
		entries[i].ID = doc.Ref.ID
	}
	return entries, nil
}

func send(ctx context.Context, out chan<- Snapshot, snap Snapshot) {
	select {
	case out <- snap:
	case <-ctx.Done():
	}
}
