package metrics

import (
	"context"
	"database/sql"
	"time"

	"cloud.google.com/go/civil"

	metricsdb "household-meal-planner/internal/metrics/metrics_db"
)

// GenerationRun records the outcome of a single shopping-list generation.
type GenerationRun struct {
	PersonID        string
	WeekStart       civil.Date
	RecipesPlanned  int
	RecipesResolved int
	Items           int
	Latency         time.Duration
	Timestamp       time.Time
}

// Store handles persistence of generation runs to SQLite.
type Store struct {
	queries *metricsdb.Queries
	db      *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{
		queries: metricsdb.New(db),
		db:      db,
	}
}

// RecordGeneration saves a generation run.
func (s *Store) RecordGeneration(ctx context.Context, run GenerationRun) error {
	ts := run.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return s.queries.InsertGenerationRun(ctx, metricsdb.InsertGenerationRunParams{
		PersonID:        run.PersonID,
		WeekStart:       run.WeekStart.String(),
		RecipesPlanned:  int64(run.RecipesPlanned),
		RecipesResolved: int64(run.RecipesResolved),
		Items:           int64(run.Items),
		LatencyMs:       run.Latency.Milliseconds(),
		Timestamp:       ts.UTC(),
	})
}

// DailyStats summarizes the generation runs of a single day.
type DailyStats struct {
	Date         string
	Runs         int
	Resolved     int
	Unresolved   int
	AvgLatencyMS int64
}

// GetDailyStats retrieves per-day totals for the last N days, newest first.
func (s *Store) GetDailyStats(ctx context.Context, days int) ([]DailyStats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.queries.GetDailyGenerationStats(ctx, since)
	if err != nil {
		return nil, err
	}

	var results []DailyStats
	for _, r := range rows {
		d := DailyStats{
			Runs: int(r.Count),
		}

		if day, ok := r.Day.(string); ok {
			d.Date = day
		} else {
			d.Date = "Unknown"
		}

		if r.Resolved.Valid {
			d.Resolved = int(r.Resolved.Float64)
		}
		if r.Unresolved.Valid {
			d.Unresolved = int(r.Unresolved.Float64)
		}
		if r.AvgLatencyMs.Valid {
			d.AvgLatencyMS = int64(r.AvgLatencyMs.Float64)
		}

		results = append(results, d)
	}
	return results, nil
}

// Cleanup removes runs older than the specified number of days and reports
// how many were deleted.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	return s.queries.CleanupGenerationRuns(ctx, threshold)
}
