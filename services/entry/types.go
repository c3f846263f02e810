package entry

import "time"

// StreakEntry is one recorded check-in for a streak by a specific user.
// Timestamp is assigned by the server; until the write is committed it
// reads back as the zero time and must not be bucketed into any day.
type StreakEntry struct {
	ID        string    `firestore:"-" json:"id"`
	StreakID  string    `firestore:"streakId" json:"streakId"`
	UserID    string    `firestore:"userId" json:"userId"`
	Timestamp time.Time `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	Notes     *string   `firestore:"notes" json:"notes,omitempty"`
}

// Snapshot is one emission of a live entries subscription: the full result
// set for the streak as of the change, or a subscription error.
type Snapshot struct {
	Entries []StreakEntry
	Err     error
}
