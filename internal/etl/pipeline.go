package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/elonfeng/parksync/internal/observability"
	"github.com/elonfeng/parksync/internal/store"
	"github.com/elonfeng/parksync/pkg/nps"
	"github.com/elonfeng/parksync/pkg/snapshot"
)

// Fetcher retrieves the two upstream documents.
type Fetcher interface {
	Parks(ctx context.Context) (*nps.ParksResponse, error)
	Amenities(ctx context.Context) (*nps.AmenitiesResponse, error)
}

// NewsSource collects optional park news.
type NewsSource interface {
	Collect(ctx context.Context) ([]nps.NewsItem, error)
}

// Report summarizes one run.
type Report struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Loaded    map[string]int `json:"loaded"`
	Totals    map[string]int `json:"totals"`
}

// Pipeline runs fetch, snapshot and load once, in that order. Both documents
// are fetched and persisted before the database is touched, and the load is a
// single transaction, so a failed run leaves the database as it was.
type Pipeline struct {
	fetcher   Fetcher
	snapshots *snapshot.Writer
	store     store.Store
	news      NewsSource
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a pipeline. news may be nil.
func New(f Fetcher, w *snapshot.Writer, s store.Store, news NewsSource, m *observability.Metrics, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   f,
		snapshots: w,
		store:     s,
		news:      news,
		metrics:   m,
		logger:    logger,
	}
}

// Run executes the sync.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: time.Now().UTC()}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
		p.metrics.SyncDuration.Set(report.Duration.Seconds())
	}()

	parks, err := fetch(ctx, p, snapshot.Parks, p.fetcher.Parks)
	if err != nil {
		return report, err
	}
	if err := p.save(ctx, snapshot.Parks, parks.Raw); err != nil {
		return report, err
	}

	amenities, err := fetch(ctx, p, snapshot.Amenities, p.fetcher.Amenities)
	if err != nil {
		return report, err
	}
	if err := p.save(ctx, snapshot.Amenities, amenities.Raw); err != nil {
		return report, err
	}

	var news []nps.NewsItem
	if p.news != nil {
		news, err = p.news.Collect(ctx)
		if err != nil {
			return report, fmt.Errorf("collect news: %w", err)
		}
		p.logger.Info("collected news", "items", len(news))
	}

	batch := Normalize(parks, amenities, news)

	if err := p.store.EnsureSchema(ctx); err != nil {
		return report, fmt.Errorf("ensure schema: %w", err)
	}

	loaded, err := p.store.Load(ctx, batch)
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}
	report.Loaded = loaded
	for table, n := range loaded {
		p.metrics.RowsLoaded.WithLabelValues(table).Add(float64(n))
	}
	p.logger.Info("loaded", "parks", loaded["parks"], "activities", loaded["activities"],
		"amenities", loaded["amenities"], "park_amenities", loaded["park_amenities"],
		"park_news", loaded["park_news"])

	totals, err := p.store.Stats(ctx)
	if err != nil {
		p.logger.Warn("count rows", "error", err)
	} else {
		report.Totals = totals
		for table, n := range totals {
			p.metrics.TableRows.WithLabelValues(table).Set(float64(n))
		}
	}

	p.metrics.LastSuccess.SetToCurrentTime()
	return report, nil
}

func (p *Pipeline) save(ctx context.Context, kind snapshot.Kind, body []byte) error {
	path, err := p.snapshots.Save(ctx, kind, body)
	if err != nil {
		return err
	}
	p.metrics.SnapshotBytes.WithLabelValues(kind.Name).Set(float64(len(body)))
	p.logger.Info("wrote snapshot", "endpoint", kind.Name, "path", path, "bytes", len(body))
	return nil
}

func fetch[T any](ctx context.Context, p *Pipeline, kind snapshot.Kind, fn func(context.Context) (T, error)) (T, error) {
	p.logger.Info("fetching", "endpoint", kind.Name)
	start := time.Now()
	v, err := fn(ctx)
	p.metrics.FetchDuration.WithLabelValues(kind.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.FetchErrors.WithLabelValues(kind.Name).Inc()
		var zero T
		return zero, fmt.Errorf("fetch %s: %w", kind.Name, err)
	}
	return v, nil
}
