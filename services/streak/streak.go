package streak

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streakio/services/user"
	"streakio/set"
	"streakio/utils"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

type Service interface {
	// Create stores a new streak. The creator is always included in the
	// participant list and duplicates are collapsed.
	Create(ctx context.Context, streak *Streak) (*Streak, error)

	// Get returns the streak with the given ID, or (nil, nil) when it does
	// not exist.
	Get(ctx context.Context, ID string) (*Streak, error)

	// ListForUser returns every streak the user participates in.
	ListForUser(ctx context.Context, userID string) ([]Streak, error)

	// AddParticipant resolves emailToAdd to a user document and appends
	// that user to the streak's participant list.
	AddParticipant(ctx context.Context, streakID, viewerEmail, emailToAdd string) error

	// Delete removes a streak. Only the creator may delete it.
	Delete(ctx context.Context, streakID, requesterID string) error

	// Watch emits a Snapshot on every remote change to the streak document
	// until ctx is cancelled. The returned channel is closed after
	// cancellation; no emissions follow the close.
	Watch(ctx context.Context, ID string) <-chan Snapshot
}

const collection = "streaks"

type service struct {
	db    *firestore.Client
	users user.Service
}

var _ Service = (*service)(nil)

func NewService(db *firestore.Client, users user.Service) Service {
	return &service{
		db:    db,
		users: users,
	}
}

var (
	ErrTitleRequired      = errors.New("title cannot be empty")
	ErrSelfAdd            = errors.New("you cannot add yourself again")
	ErrUnknownEmail       = errors.New("no user with that email")
	ErrAlreadyParticipant = errors.New("user is already a participant")
	ErrNotCreator         = errors.New("only the creator can delete a streak")
	ErrNotFound           = errors.New("streak not found")
)

func (s *service) Create(ctx context.Context, streak *Streak) (*Streak, error) {
	if streak == nil {
		return nil, errors.New("streak is nil")
	}
	if strings.TrimSpace(streak.Title) == "" {
		return nil, ErrTitleRequired
	}
	if streak.CreatorID == "" {
		return nil, errors.New("creator id is required")
	}

	participants := set.FromSlice(streak.Participants)
	participants.Add(streak.CreatorID)
	streak.Participants = participants.ToSlice()
	streak.Title = strings.TrimSpace(streak.Title)
	streak.Description = strings.TrimSpace(streak.Description)

	ref := s.db.Collection(collection).NewDoc()
	streak.ID = ref.ID

	if _, err := ref.Set(ctx, streak); err != nil {
		return nil, fmt.Errorf("failed to create streak: %w", err)
	}
	return streak, nil
}

func (s *service) Get(ctx context.Context, ID string) (*Streak, error) {
	doc, err := s.db.Collection(collection).Doc(ID).Get(ctx)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch streak %s: %w", ID, err)
	}
	st := Streak{}
	if err := doc.DataTo(&st); err != nil {
		return nil, fmt.Errorf("failed to decode streak %s: %w", ID, err)
	}
	st.ID = doc.Ref.ID
	return &st, nil
}

func (s *service) ListForUser(ctx context.Context, userID string) ([]Streak, error) {
	iter := s.db.Collection(collection).
		Where("participants", "array-contains", userID).
		Documents(ctx)
	defer iter.Stop()

	streaks := make([]Streak, 0)
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		st := Streak{}
		if err := doc.DataTo(&st); err != nil {
			return nil, err
		}
		st.ID = doc.Ref.ID
		streaks = append(streaks, st)
	}
	return streaks, nil
}

func (s *service) AddParticipant(ctx context.Context, streakID, viewerEmail, emailToAdd string) error {
	emailToAdd = strings.TrimSpace(emailToAdd)
	if emailToAdd == "" {
		return errors.New("participant email cannot be empty")
	}
	if viewerEmail != "" && strings.EqualFold(viewerEmail, emailToAdd) {
		return ErrSelfAdd
	}

	toAdd, err := s.users.GetByEmail(ctx, emailToAdd)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", emailToAdd, err)
	}
	if toAdd == nil {
		return ErrUnknownEmail
	}

	st, err := s.Get(ctx, streakID)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNotFound
	}
	if set.FromSlice(st.Participants).Contains(toAdd.ID) {
		return ErrAlreadyParticipant
	}

	_, err = s.db.Collection(collection).Doc(streakID).Update(ctx, []firestore.Update{
		{Path: "participants", Value: firestore.ArrayUnion(toAdd.ID)},
	})
	if err != nil {
		return fmt.Errorf("failed to add participant to streak %s: %w", streakID, err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, streakID, requesterID string) error {
	st, err := s.Get(ctx, streakID)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNotFound
	}
	if st.CreatorID != requesterID {
		return ErrNotCreator
	}
	if _, err := s.db.Collection(collection).Doc(streakID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete streak %s: %w", streakID, err)
	}
	return nil
}

func (s *service) Watch(ctx context.Context, ID string) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		iter := s.db.Collection(collection).Doc(ID).Snapshots(ctx)
		defer iter.Stop()
		for {
			doc, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Str("streakId", ID).Msg("streak listener failed")
				send(ctx, out, Snapshot{Err: err})
				return
			}
			if !doc.Exists() {
				send(ctx, out, Snapshot{})
				continue
			}
			st := Streak{}
			if err := doc.DataTo(&st); err != nil {
				send(ctx, out, Snapshot{Err: err})
				continue
			}
			st.ID = doc.Ref.ID
			send(ctx, out, Snapshot{Streak: &st})
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- Snapshot, snap Snapshot) {
	select {
	case out <- snap:
	case <-ctx.Done():
	}
}
