// LOCATION: internal/archive/archiver.go
//
// Retention orchestration: drain aged readings out of the database
// into monthly parquet files, then delete them.

package archive

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
)

// ReadingStore is the slice of the store the archiver needs.
type ReadingStore interface {
	ReadingsBefore(ctx context.Context, cutoff time.Time) ([]model.Sample, error)
	ListSensors(ctx context.Context) ([]model.Sensor, error)
	DeleteReadingsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver moves aged readings from the database to parquet files.
type Archiver struct {
	store ReadingStore
	dir   string
	opts  Options
}

// NewArchiver creates an archiver writing into dir.
func NewArchiver(store ReadingStore, dir string, opts Options) *Archiver {
	return &Archiver{
		store: store,
		dir:   dir,
		opts:  opts,
	}
}

// Result summarizes one archiver run.
type Result struct {
	Archived int64
	Deleted  int64
	Files    []string
}

// Run archives every reading older than the cutoff and deletes it from
// the database. Readings are only deleted after their file has been
// written and closed, so a failed run leaves the database untouched.
func (a *Archiver) Run(ctx context.Context, cutoff time.Time) (*Result, error) {
	readings, err := a.store.ReadingsBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load aged readings: %w", err)
	}
	if len(readings) == 0 {
		return &Result{}, nil
	}

	sensors, err := a.store.ListSensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sensors: %w", err)
	}
	entityByID := make(map[int64]string, len(sensors))
	for _, s := range sensors {
		entityByID[s.ID] = s.EntityID
	}

	// Group by calendar month.
	byMonth := make(map[string][]ReadingRow)
	for i := range readings {
		r := &readings[i]
		month := r.Timestamp.UTC().Format("2006-01")
		byMonth[month] = append(byMonth[month], SampleToRow(r, entityByID[r.SensorID]))
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	result := &Result{}
	runStamp := cutoff.UTC().Unix()

	for _, month := range months {
		rows := byMonth[month]
		path := filepath.Join(a.dir, fmt.Sprintf("readings-%s-%d.parquet", month, runStamp))

		w, err := NewWriter(path, a.opts)
		if err != nil {
			return result, err
		}
		if err := w.Write(rows); err != nil {
			w.Close()
			return result, fmt.Errorf("archive %s: %w", month, err)
		}
		if err := w.Close(); err != nil {
			return result, fmt.Errorf("archive %s: %w", month, err)
		}

		result.Archived += int64(len(rows))
		result.Files = append(result.Files, path)

		log.Info("archived readings",
			"month", month,
			"rows", len(rows),
			"file", path)
	}

	deleted, err := a.store.DeleteReadingsBefore(ctx, cutoff)
	if err != nil {
		return result, fmt.Errorf("delete archived readings: %w", err)
	}
	result.Deleted = deleted

	return result, nil
}
