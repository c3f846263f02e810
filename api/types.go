package api

// Request and response shapes for the REST surface. Validation against
// api/openapi.yaml happens in middleware before handlers run.

type SignUpRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type VerifyEmailRequest struct {
	IDToken string `json:"idToken" binding:"required"`
}

type AuthResponse struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

type ProfileResponse struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	EmailVerified bool   `json:"emailVerified"`
}

type CreateStreakRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type StreakResponse struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	CreatorID    string   `json:"creatorId"`
	Participants []string `json:"participants"`
	CreatedAt    string   `json:"createdAt"`
}

type AddParticipantRequest struct {
	Email string `json:"email" binding:"required"`
}

type LogEntryRequest struct {
	Notes *string `json:"notes,omitempty"`
}

type EntryResponse struct {
	ID        string  `json:"id"`
	StreakID  string  `json:"streakId"`
	UserID    string  `json:"userId"`
	Timestamp string  `json:"timestamp,omitempty"`
	Notes     *string `json:"notes,omitempty"`
}

type UserEntriesResponse struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Days     []bool `json:"days"`
}

type HistoryResponse struct {
	DateHeaders    []string              `json:"dateHeaders"`
	UserEntries    []UserEntriesResponse `json:"userEntries"`
	HasLoggedToday bool                  `json:"hasLoggedToday"`
	Loading        bool                  `json:"loading"`
	ErrorMessage   string                `json:"errorMessage,omitempty"`
}

type ExportResponse struct {
	Object string `json:"object"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type Pong struct {
	Ping string `json:"ping"`
}
