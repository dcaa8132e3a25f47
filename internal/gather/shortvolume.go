package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"regsho/internal/calendar"
	"regsho/internal/domain"
	"regsho/internal/finra"
	"regsho/internal/store"
)

// Epoch is the first session the short-volume dataset covers.
var Epoch = time.Date(2011, time.March, 1, 0, 0, 0, 0, time.UTC)

// publishHour is the Eastern Time hour after which the feed posts the
// current day's files. Before it, today's file does not exist yet.
const publishHour = 20

// ShortVolumeFeed is the slice of the feed client the synchronizer needs.
type ShortVolumeFeed interface {
	// Day returns the combined rows for one session date, or
	// finra.ErrMarketClosed when no partition was usable.
	Day(ctx context.Context, date time.Time) ([]domain.ShortVolumeRecord, error)
}

// Compile-time interface check.
var _ Synchronizer = (*ShortVolumeSynchronizer)(nil)

// ShortVolumeSynchronizer appends the missing trailing dates of the daily
// short-volume report to the ShortVolumeStore. Its only cross-run state is
// the store file itself.
type ShortVolumeSynchronizer struct {
	feed  ShortVolumeFeed
	store *store.ShortVolumeStore
	now   func() time.Time
	log   *slog.Logger
}

// NewShortVolumeSynchronizer creates a synchronizer over the given feed and
// store.
func NewShortVolumeSynchronizer(feed ShortVolumeFeed, s *store.ShortVolumeStore) *ShortVolumeSynchronizer {
	return &ShortVolumeSynchronizer{
		feed:  feed,
		store: s,
		now:   time.Now,
		log:   slog.Default().With("sync", "short-volume"),
	}
}

// Name returns the synchronizer identifier.
func (s *ShortVolumeSynchronizer) Name() string { return "short-volume" }

// Run computes the effective date range from the store tail and fetches each
// missing trading day. A closed day writes nothing and is simply absent from
// the store; each fetched day is appended in one write.
func (s *ShortVolumeSynchronizer) Run(ctx context.Context) error {
	start := Epoch
	if s.store.Exists() {
		last, err := s.store.LastDate()
		if err != nil {
			// A corrupt tail would make the effective range wrong; refusing
			// to run is the only safe answer.
			return fmt.Errorf("reading store tail: %w", err)
		}
		start = last.AddDate(0, 0, 1)
	}

	end, err := s.effectiveEnd()
	if err != nil {
		return err
	}

	dates := calendar.TradingDates(start, end)
	if len(dates) == 0 {
		s.log.Info("up-to-date")
		return nil
	}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}

		day := date.Format("2006-01-02")
		records, err := s.feed.Day(ctx, date)
		switch {
		case errors.Is(err, finra.ErrMarketClosed):
			s.log.Info("closed", "date", day)
			continue
		case err != nil:
			return fmt.Errorf("fetching %s: %w", day, err)
		}

		if err := s.store.AppendDay(records, date.Equal(Epoch)); err != nil {
			return fmt.Errorf("appending %s: %w", day, err)
		}
		s.log.Info("fetched", "date", day, "rows", len(records))
	}

	s.log.Info("up-to-date")
	return nil
}

// effectiveEnd is today in Eastern Time, shifted back one day before the
// evening publication cutoff.
func (s *ShortVolumeSynchronizer) effectiveEnd() (time.Time, error) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.Time{}, fmt.Errorf("loading ET timezone: %w", err)
	}
	now := s.now().In(et)
	if now.Hour() < publishHour {
		now = now.AddDate(0, 0, -1)
	}
	return domain.Day(now), nil
}
