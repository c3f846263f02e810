// Package export writes attendance reports to Cloud Storage.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"streakio/clients/gcp"
	"streakio/services/entry"
	"streakio/services/history"
	"streakio/services/streak"
	"streakio/services/user"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"
)

type Service interface {
	// HistoryReport builds a CSV of the streak's 7-day attendance table and
	// uploads it to the export bucket. Returns the object name.
	HistoryReport(ctx context.Context, streakID, viewerID string) (string, error)
}

type service struct {
	bucket  string
	streaks streak.Service
	entries entry.Service
	users   user.Service
	loc     *time.Location
}

var _ Service = (*service)(nil)

func NewService(bucket string, streaks streak.Service, entries entry.Service, users user.Service) Service {
	return &service{
		bucket:  bucket,
		streaks: streaks,
		entries: entries,
		users:   users,
		loc:     time.UTC,
	}
}

func (s *service) HistoryReport(ctx context.Context, streakID, viewerID string) (string, error) {
	st, err := s.streaks.Get(ctx, streakID)
	if err != nil {
		return "", err
	}
	if st == nil {
		return "", streak.ErrNotFound
	}
	es, err := s.entries.ListForStreak(ctx, streakID)
	if err != nil {
		return "", err
	}

	participants := history.ResolveParticipants(ctx, s.users, st.Participants)
	today := civil.DateOf(time.Now().In(s.loc))
	rows, _ := history.Build(participants, es, viewerID, today, s.loc)
	dates := history.Window(today)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, 0, len(dates)+1)
	header = append(header, "user")
	for _, d := range dates {
		header = append(header, d.String())
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, r := range rows {
		record := make([]string, 0, len(dates)+1)
		record = append(record, r.UserName)
		for _, d := range dates {
			if r.EntriesByDate[d] {
				record = append(record, "1")
			} else {
				record = append(record, "0")
			}
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	object := fmt.Sprintf("reports/%s/%s.csv", streakID, today.String())
	if err := gcp.UploadObject(ctx, s.bucket, object, &buf); err != nil {
		return "", fmt.Errorf("failed to upload report: %w", err)
	}
	log.Info().Str("bucket", s.bucket).Str("object", object).Msg("uploaded history report")
	return object, nil
}
