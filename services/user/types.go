package user

import (
	"strings"
	"time"
)

// User mirrors the auth identity in Firestore so participants can be
// resolved by id or invited by email.
type User struct {
	ID          string    `firestore:"id" structs:"id" json:"id"`
	Email       string    `firestore:"email" structs:"email" json:"email"`
	DisplayName string    `firestore:"displayName" structs:"displayName" json:"displayName"`
	UpdatedAt   time.Time `firestore:"updatedAt" structs:"updatedAt" json:"updatedAt"`
}

const fallbackPrefixLen = 6

// ResolvedName returns the name shown for this user: the display name when
// set, otherwise the local part of the email, otherwise a synthetic
// "User-<id prefix>" label.
func (u User) ResolvedName() string {
	if name := strings.TrimSpace(u.DisplayName); name != "" {
		return name
	}
	if local, _, found := strings.Cut(u.Email, "@"); found && strings.TrimSpace(local) != "" {
		return local
	}
	id := u.ID
	if len(id) > fallbackPrefixLen {
		id = id[:fallbackPrefixLen]
	}
	return "User-" + id
}
