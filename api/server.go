package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"streakio/events"
	"streakio/services/auth"
	"streakio/services/entry"
	"streakio/services/export"
	"streakio/services/history"
	"streakio/services/streak"
	"streakio/services/user"
	"streakio/validator"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Server struct {
	Auth     auth.Service
	Users    user.Service
	Streaks  streak.Service
	Entries  entry.Service
	Exports  export.Service
	Notifier *events.Notifier
	// Location buckets entry timestamps into calendar days for the
	// has-logged-today gate and the history window.
	Location *time.Location
}

func NewServer(
	authService auth.Service,
	users user.Service,
	streaks streak.Service,
	entries entry.Service,
	exports export.Service,
	notifier *events.Notifier,
) *Server {
	return &Server{
		Auth:     authService,
		Users:    users,
		Streaks:  streaks,
		Entries:  entries,
		Exports:  exports,
		Notifier: notifier,
		Location: time.UTC,
	}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/ping", s.GetPing)

	r.POST("/auth/signup", s.SignUp)
	r.POST("/auth/login", s.Login)
	r.POST("/auth/login/google", s.LoginWithGoogle)
	r.POST("/auth/verify-email", s.SendVerificationEmail)
	r.POST("/auth/signout", s.SignOut)

	r.GET("/me", s.GetProfile)

	r.GET("/streaks", s.ListStreaks)
	r.POST("/streaks", s.CreateStreak)
	r.GET("/streaks/:streakId", s.GetStreak)
	r.DELETE("/streaks/:streakId", s.DeleteStreak)
	r.POST("/streaks/:streakId/participants", s.AddParticipant)
	r.GET("/streaks/:streakId/entries", s.ListEntries)
	r.POST("/streaks/:streakId/entries", s.LogEntry)
	r.DELETE("/streaks/:streakId/entries", s.RemoveEntries)
	r.GET("/streaks/:streakId/history", s.GetHistory)
	r.GET("/streaks/:streakId/history/live", s.StreamHistory)
	r.POST("/streaks/:streakId/export", s.ExportHistory)
}

func (s *Server) GetPing(c *gin.Context) {
	c.JSON(http.StatusOK, Pong{Ping: "pong"})
}

func (s *Server) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	id, err := s.Auth.SignUpWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, authStatus(err), err)
		return
	}
	c.JSON(http.StatusCreated, ToAuthResponse(id))
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	id, err := s.Auth.SignInWithEmail(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, authStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, ToAuthResponse(id))
}

func (s *Server) LoginWithGoogle(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	id, err := s.Auth.SignInWithGoogle(c.Request.Context(), req.IDToken)
	if err != nil {
		abortWithError(c, authStatus(err), err)
		return
	}
	c.JSON(http.StatusOK, ToAuthResponse(id))
}

func (s *Server) SendVerificationEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.Auth.SendVerificationEmail(c.Request.Context(), req.IDToken); err != nil {
		abortWithError(c, authStatus(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) SignOut(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	if err := s.Auth.SignOut(c.Request.Context(), id.UID); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetProfile(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	u, err := s.Users.GetUser(c.Request.Context(), id.UID)
	if err != nil {
		if !errors.Is(err, user.NotFound) {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
		// No document yet; the account still exists server-side.
		record, recErr := s.Auth.UserRecord(c.Request.Context(), id.UID)
		if recErr != nil {
			abortWithError(c, http.StatusNotFound, err)
			return
		}
		u = &user.User{
			ID:          record.UID,
			Email:       record.Email,
			DisplayName: record.DisplayName,
		}
	}
	c.JSON(http.StatusOK, ProfileResponse{
		UID:           u.ID,
		Email:         u.Email,
		DisplayName:   u.ResolvedName(),
		EmailVerified: id.EmailVerified,
	})
}

func (s *Server) ListStreaks(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	streaks, err := s.Streaks.ListForUser(c.Request.Context(), id.UID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]StreakResponse, 0, len(streaks))
	for _, st := range streaks {
		out = append(out, ToStreakResponse(st))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) CreateStreak(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var req CreateStreakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	st, err := s.Streaks.Create(c.Request.Context(), &streak.Streak{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   id.UID,
	})
	if err != nil {
		if errors.Is(err, streak.ErrTitleRequired) {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	s.Notifier.Notify()
	c.JSON(http.StatusCreated, ToStreakResponse(*st))
}

func (s *Server) GetStreak(c *gin.Context) {
	if _, ok := validator.FromGin(c); !ok {
		abortUnauthenticated(c)
		return
	}
	st, err := s.Streaks.Get(c.Request.Context(), c.Param("streakId"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if st == nil {
		abortWithError(c, http.StatusNotFound, streak.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, ToStreakResponse(*st))
}

func (s *Server) DeleteStreak(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	err := s.Streaks.Delete(c.Request.Context(), c.Param("streakId"), id.UID)
	if err != nil {
		switch {
		case errors.Is(err, streak.ErrNotFound):
			abortWithError(c, http.StatusNotFound, err)
		case errors.Is(err, streak.ErrNotCreator):
			abortWithError(c, http.StatusForbidden, err)
		default:
			abortWithError(c, http.StatusInternalServerError, err)
		}
		return
	}
	s.Notifier.Notify()
	c.Status(http.StatusNoContent)
}

func (s *Server) AddParticipant(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	err := s.Streaks.AddParticipant(c.Request.Context(), c.Param("streakId"), id.Email, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, streak.ErrNotFound), errors.Is(err, streak.ErrUnknownEmail):
			abortWithError(c, http.StatusNotFound, err)
		case errors.Is(err, streak.ErrSelfAdd), errors.Is(err, streak.ErrAlreadyParticipant):
			abortWithError(c, http.StatusConflict, err)
		default:
			abortWithError(c, http.StatusInternalServerError, err)
		}
		return
	}
	s.Notifier.Notify()
	c.Status(http.StatusNoContent)
}

func (s *Server) ListEntries(c *gin.Context) {
	if _, ok := validator.FromGin(c); !ok {
		abortUnauthenticated(c)
		return
	}
	entries, err := s.Entries.ListForStreak(c.Request.Context(), c.Param("streakId"))
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToEntryResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

var errAlreadyLogged = errors.New("already logged an entry today")

func (s *Server) LogEntry(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	var req LogEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	streakID := c.Param("streakId")
	logged, err := s.Entries.HasLoggedOnDate(c.Request.Context(), streakID, id.UID, s.today())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if logged {
		abortWithError(c, http.StatusConflict, errAlreadyLogged)
		return
	}
	entryID, err := s.Entries.Log(c.Request.Context(), streakID, id.UID, req.Notes)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	s.Notifier.Notify()
	c.JSON(http.StatusCreated, IDResponse{ID: entryID})
}

func (s *Server) RemoveEntries(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	date := s.today()
	if raw := c.Query("date"); raw != "" {
		parsed, err := civil.ParseDate(raw)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, err)
			return
		}
		date = parsed
	}
	if err := s.Entries.RemoveForDate(c.Request.Context(), c.Param("streakId"), id.UID, date); err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	s.Notifier.Notify()
	c.Status(http.StatusNoContent)
}

// GetHistory computes the attendance table once, outside of any live
// subscription.
func (s *Server) GetHistory(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	ctx := c.Request.Context()
	streakID := c.Param("streakId")

	st, err := s.Streaks.Get(ctx, streakID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	if st == nil {
		abortWithError(c, http.StatusNotFound, streak.ErrNotFound)
		return
	}
	entries, err := s.Entries.ListForStreak(ctx, streakID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	participants := history.ResolveParticipants(ctx, s.Users, st.Participants)
	today := s.today()
	rows, loggedToday := history.Build(participants, entries, id.UID, today, s.Location)
	c.JSON(http.StatusOK, ToHistoryResponse(history.View{
		DateHeaders:    history.Window(today),
		UserEntries:    rows,
		HasLoggedToday: loggedToday,
	}))
}

// StreamHistory serves the live attendance table over SSE. Each event holds
// a full view snapshot; delivery is conflated, so a slow client skips
// intermediate states rather than falling behind.
func (s *Server) StreamHistory(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	streakID := c.Param("streakId")

	coord := history.NewCoordinator(history.Config{
		Streaks:  s.Streaks,
		Entries:  s.Entries,
		Users:    s.Users,
		Notifier: s.Notifier,
		StreakID: streakID,
		ViewerID: id.UID,
		Location: s.Location,
	})
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go coord.Run(ctx)

	log.Info().Str("streakId", streakID).Str("userId", id.UID).Msg("history stream opened")
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Stream(func(w io.Writer) bool {
		view, open := <-coord.Updates()
		if !open {
			return false
		}
		c.SSEvent("history", ToHistoryResponse(view))
		return true
	})
	log.Info().Str("streakId", streakID).Msg("history stream closed")
}

func (s *Server) ExportHistory(c *gin.Context) {
	id, ok := validator.FromGin(c)
	if !ok {
		abortUnauthenticated(c)
		return
	}
	object, err := s.Exports.HistoryReport(c.Request.Context(), c.Param("streakId"), id.UID)
	if err != nil {
		if errors.Is(err, streak.ErrNotFound) {
			abortWithError(c, http.StatusNotFound, err)
			return
		}
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusCreated, ExportResponse{Object: object})
}

func (s *Server) today() civil.Date {
	return civil.DateOf(time.Now().In(s.Location))
}

func abortWithError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
}

// authStatus maps Identity Toolkit failures to 401 and local precondition
// failures to 400.
func authStatus(err error) int {
	var restErr *auth.RestError
	if errors.As(err, &restErr) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, auth.ErrBlankCredentials) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
