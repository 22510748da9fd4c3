// LOCATION: internal/archive/retention.go
//
// Daily retention sweep, run as a collector source. Aged readings are
// archived to parquet first (when archiving is enabled), then dropped
// together with aged weather observations.

package archive

import (
	"context"
	"time"

	"github.com/77degrees/climate-analyzer/internal/logging"
)

var log = logging.Component("archive")

// RetentionStore is the slice of the database the sweep needs.
type RetentionStore interface {
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteWeatherBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSource enforces the retention window once a day.
type RetentionSource struct {
	store     RetentionStore
	archiver  *Archiver // nil means delete without archiving
	retention time.Duration
}

// NewRetentionSource creates the sweep source. retentionDays must be
// positive; a zero retention is handled by not registering the source.
func NewRetentionSource(st RetentionStore, archiver *Archiver, retentionDays int) *RetentionSource {
	return &RetentionSource{
		store:     st,
		archiver:  archiver,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

func (s *RetentionSource) Name() string            { return "retention" }
func (s *RetentionSource) Interval() time.Duration { return 24 * time.Hour }

// Poll runs one sweep, returning the number of rows removed.
func (s *RetentionSource) Poll(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.retention)

	var removed int64
	if s.archiver != nil {
		result, err := s.archiver.Run(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		removed += result.Deleted
	} else {
		n, err := s.store.DeleteReadingsBefore(ctx, cutoff)
		if err != nil {
			return 0, err
		}
		removed += n
	}

	n, err := s.store.DeleteWeatherBefore(ctx, cutoff)
	if err != nil {
		return int(removed), err
	}
	removed += n

	if removed > 0 {
		log.Info("retention sweep", "cutoff", cutoff.Format("2006-01-02"), "removed", removed)
	}
	return int(removed), nil
}
