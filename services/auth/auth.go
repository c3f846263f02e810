package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"streakio/services/user"

	fbauth "firebase.google.com/go/auth"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

type Service interface {
	// SignInWithEmail authenticates an email/password pair and upserts the
	// user's Firestore document.
	SignInWithEmail(ctx context.Context, email, password string) (*Identity, error)

	// SignUpWithEmail creates the account, upserts the user document and
	// sends the verification email.
	SignUpWithEmail(ctx context.Context, email, password string) (*Identity, error)

	// SignInWithGoogle exchanges a Google ID token for a Firebase identity.
	SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error)

	// SendVerificationEmail re-sends the verification email for the
	// session identified by idToken.
	SendVerificationEmail(ctx context.Context, idToken string) error

	// Reload fetches the account's current server-side state, including
	// whether the email has been verified.
	Reload(ctx context.Context, idToken string) (*Account, error)

	// SignOut revokes the user's refresh tokens. Existing ID tokens expire
	// on their own within the hour.
	SignOut(ctx context.Context, uid string) error

	// UserRecord fetches the Admin SDK view of an account by UID.
	UserRecord(ctx context.Context, uid string) (*fbauth.UserRecord, error)

	// State exposes the in-process current-identity stream.
	State() *State
}

type service struct {
	rest  *restClient
	admin *fbauth.Client
	users user.Service
	state *State
}

var _ Service = (*service)(nil)

func NewService(client *resty.Client, apiKey string, admin *fbauth.Client, users user.Service) Service {
	return &service{
		rest:  newRestClient(client, apiKey),
		admin: admin,
		users: users,
		state: NewState(),
	}
}

var ErrBlankCredentials = errors.New("email and password cannot be empty")

func (s *service) SignInWithEmail(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrBlankCredentials
	}
	id, err := s.rest.signInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.afterSignIn(ctx, id)
	return id, nil
}

func (s *service) SignUpWithEmail(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrBlankCredentials
	}
	id, err := s.rest.signUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.afterSignIn(ctx, id)
	if err := s.rest.sendVerificationEmail(ctx, id.IDToken); err != nil {
		// The account exists; a missing verification mail is not fatal.
		log.Warn().Err(err).Str("email", email).Msg("failed to send verification email")
	}
	return id, nil
}

func (s *service) SignInWithGoogle(ctx context.Context, googleIDToken string) (*Identity, error) {
	if googleIDToken == "" {
		return nil, errors.New("google id token is required")
	}
	id, err := s.rest.signInWithIdp(ctx, googleIDToken)
	if err != nil {
		return nil, err
	}
	s.afterSignIn(ctx, id)
	return id, nil
}

func (s *service) SendVerificationEmail(ctx context.Context, idToken string) error {
	if idToken == "" {
		return errors.New("no session to send verification email for")
	}
	return s.rest.sendVerificationEmail(ctx, idToken)
}

func (s *service) Reload(ctx context.Context, idToken string) (*Account, error) {
	return s.rest.lookup(ctx, idToken)
}

func (s *service) SignOut(ctx context.Context, uid string) error {
	if err := s.admin.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens for %s: %w", uid, err)
	}
	s.state.Clear()
	return nil
}

func (s *service) UserRecord(ctx context.Context, uid string) (*fbauth.UserRecord, error) {
	record, err := s.admin.GetUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user record for %s: %w", uid, err)
	}
	return record, nil
}

func (s *service) State() *State {
	return s.state
}

// afterSignIn mirrors the identity into the users collection and publishes
// it on the state stream. An upsert failure is logged, not surfaced; the
// sign-in itself succeeded.
func (s *service) afterSignIn(ctx context.Context, id *Identity) {
	u := user.User{
		ID:          id.UID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
	}
	u.DisplayName = u.ResolvedName()
	if err := s.users.UpsertUser(ctx, &u); err != nil {
		log.Warn().Err(err).Str("userId", id.UID).Msg("failed to save user after sign-in")
	}
	s.state.Set(id)
}
