package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streakio/utils"

	"cloud.google.com/go/firestore"
	"github.com/fatih/structs"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
)

type Service interface {
	// GetUser returns the user document for the given auth UID.
	// Returns NotFound when no document exists.
	GetUser(ctx context.Context, ID string) (*User, error)

	// GetByEmail returns the user with the given email, or (nil, nil) when
	// nobody has signed in with it yet.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpsertUser merges the user document on every successful sign-in.
	UpsertUser(ctx context.Context, user *User) error
}

type userService struct {
	db *firestore.Client
}

var _ Service = (*userService)(nil)

const userCollection = "users"

func NewService(client *firestore.Client) Service {
	return &userService{
		db: client,
	}
}

var NotFound = errors.New("user not found")

func (s *userService) GetUser(ctx context.Context, ID string) (*User, error) {
	if ID == "" {
		return nil, errors.New("user id is required")
	}
	doc, err := s.db.Collection(userCollection).Doc(ID).Get(ctx)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, NotFound
		}
		return nil, fmt.Errorf("failed to fetch user %s: %w", ID, err)
	}
	u := User{}
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", ID, err)
	}
	u.ID = doc.Ref.ID
	return &u, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*User, error) {
	iter := s.db.Collection(userCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		u := User{}
		if err := doc.DataTo(&u); err != nil {
			return nil, err
		}
		u.ID = doc.Ref.ID
		return &u, nil
	}
	return nil, nil
}

func (s *userService) UpsertUser(ctx context.Context, user *User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	if user.ID == "" {
		return errors.New("user id is required")
	}
	user.UpdatedAt = time.Now()

	_, err := s.db.Collection(userCollection).
		Doc(user.ID).
		Set(ctx, structs.Map(user), firestore.MergeAll)
	if err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to upsert user")
		return fmt.Errorf("failed to upsert user %s: %w", user.ID, err)
	}
	return nil
}
