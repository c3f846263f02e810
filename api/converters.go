package api

import (
	"time"

	"streakio/services/auth"
	"streakio/services/entry"
	"streakio/services/history"
	"streakio/services/streak"
)

func ToAuthResponse(id *auth.Identity) AuthResponse {
	return AuthResponse{
		UID:          id.UID,
		Email:        id.Email,
		DisplayName:  id.DisplayName,
		IDToken:      id.IDToken,
		RefreshToken: id.RefreshToken,
		ExpiresIn:    id.ExpiresIn,
	}
}

func ToStreakResponse(st streak.Streak) StreakResponse {
	created := ""
	if !st.CreatedAt.IsZero() {
		created = st.CreatedAt.Format(time.RFC3339)
	}
	return StreakResponse{
		ID:           st.ID,
		Title:        st.Title,
		Description:  st.Description,
		CreatorID:    st.CreatorID,
		Participants: st.Participants,
		CreatedAt:    created,
	}
}

func ToEntryResponse(e entry.StreakEntry) EntryResponse {
	ts := ""
	if !e.Timestamp.IsZero() {
		ts = e.Timestamp.Format(time.RFC3339)
	}
	return EntryResponse{
		ID:        e.ID,
		StreakID:  e.StreakID,
		UserID:    e.UserID,
		Timestamp: ts,
		Notes:     e.Notes,
	}
}

// ToHistoryResponse flattens the per-date map into a slice aligned with the
// date headers, oldest first.
func ToHistoryResponse(v history.View) HistoryResponse {
	headers := make([]string, len(v.DateHeaders))
	for i, d := range v.DateHeaders {
		headers[i] = d.String()
	}
	rows := make([]UserEntriesResponse, 0, len(v.UserEntries))
	for _, r := range v.UserEntries {
		days := make([]bool, len(v.DateHeaders))
		for i, d := range v.DateHeaders {
			days[i] = r.EntriesByDate[d]
		}
		rows = append(rows, UserEntriesResponse{
			UserID:   r.UserID,
			UserName: r.UserName,
			Days:     days,
		})
	}
	return HistoryResponse{
		DateHeaders:    headers,
		UserEntries:    rows,
		HasLoggedToday: v.HasLoggedToday,
		Loading:        v.Loading,
		ErrorMessage:   v.ErrorMessage,
	}
}
