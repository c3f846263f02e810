package streak

import "time"

// Streak is a shared, recurring commitment tracked by a group of
// participants.
type Streak struct {
	ID           string    `firestore:"-" json:"id"`
	Title        string    `firestore:"title" json:"title"`
	Description  string    `firestore:"description" json:"description"`
	CreatorID    string    `firestore:"creatorId" json:"creatorId"`
	Participants []string  `firestore:"participants" json:"participants"`
	CreatedAt    time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// Snapshot is one emission of a live streak subscription. A nil Streak with
// a nil Err means the document does not (or no longer does) exist.
type Snapshot struct {
	Streak *Streak
	Err    error
}
