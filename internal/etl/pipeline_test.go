package etl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/elonfeng/parksync/internal/observability"
	"github.com/elonfeng/parksync/internal/store"
	"github.com/elonfeng/parksync/pkg/nps"
	"github.com/elonfeng/parksync/pkg/snapshot"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	parksBody     = `{"total":"2","data":[{"id":"P1","fullName":"Yellowstone National Park","parkCode":"yell","states":"ID,MT,WY","description":"Geysers.","latitude":"44.6","longitude":"-110.5","activities":[{"id":"ACT1","name":"Hiking"},{"id":"ACT2","name":"Fishing"}]},{"id":"P2","fullName":"Acadia National Park","parkCode":"acad","states":"ME","activities":[{"id":"ACT1","name":"Hiking"}]}]}`
	amenitiesBody = `{"data":[[{"id":"A1","name":"Restrooms","parks":[{"parkCode":"YELL"}]}]]}`
)

type fakeFetcher struct {
	parks        string
	amenities    string
	parksErr     error
	amenitiesErr error
}

func (f *fakeFetcher) Parks(context.Context) (*nps.ParksResponse, error) {
	if f.parksErr != nil {
		return nil, f.parksErr
	}
	return nps.DecodeParks([]byte(f.parks))
}

func (f *fakeFetcher) Amenities(context.Context) (*nps.AmenitiesResponse, error) {
	if f.amenitiesErr != nil {
		return nil, f.amenitiesErr
	}
	return nps.DecodeAmenities([]byte(f.amenities))
}

type fakeNews struct{ items []nps.NewsItem }

func (f *fakeNews) Collect(context.Context) ([]nps.NewsItem, error) { return f.items, nil }

type env struct {
	dir     string
	dbPath  string
	store   *store.SQLiteStore
	metrics *observability.Metrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "parks.db")
	s, err := store.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &env{
		dir:     dir,
		dbPath:  dbPath,
		store:   s,
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
	}
}

func (e *env) pipeline(f Fetcher, news NewsSource) *Pipeline {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w := snapshot.NewWriter(filepath.Join(e.dir, "data"), filepath.Join(e.dir, "logs"), clock, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(f, w, e.store, news, e.metrics, logger)
}

func TestPipeline_Run(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(&fakeFetcher{parks: parksBody, amenities: amenitiesBody}, nil)

	report, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"parks": 2, "activities": 3, "amenities": 1, "park_amenities": 1, "park_news": 0,
	}, report.Totals)

	amenities, err := e.store.ListAmenities(context.Background(), store.AmenityListOpts{ParkCode: "YELL"})
	require.NoError(t, err)
	require.Len(t, amenities, 1)
	assert.Equal(t, "Restrooms", *amenities[0].Name)

	raw, err := os.ReadFile(filepath.Join(e.dir, "data", "park_names.json"))
	require.NoError(t, err)
	assert.Equal(t, parksBody, string(raw))

	raw, err = os.ReadFile(filepath.Join(e.dir, "data", "amenities.json"))
	require.NoError(t, err)
	assert.Equal(t, amenitiesBody, string(raw))

	logLine, err := os.ReadFile(filepath.Join(e.dir, "logs", "parks.log"))
	require.NoError(t, err)
	assert.Equal(t, "2025 06 01 12 00 00 - Fetched park names from API\n", string(logLine))

	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.RowsLoaded.WithLabelValues("parks")))
	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.TableRows.WithLabelValues("activities")))
	assert.Positive(t, testutil.ToFloat64(e.metrics.LastSuccess))
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(&fakeFetcher{parks: parksBody, amenities: amenitiesBody}, nil)
	ctx := context.Background()

	_, err := p.Run(ctx)
	require.NoError(t, err)
	firstStats, err := e.store.Stats(ctx)
	require.NoError(t, err)
	firstParks, err := e.store.ListParks(ctx, store.ParkListOpts{})
	require.NoError(t, err)

	_, err = p.Run(ctx)
	require.NoError(t, err)
	secondStats, err := e.store.Stats(ctx)
	require.NoError(t, err)
	secondParks, err := e.store.ListParks(ctx, store.ParkListOpts{})
	require.NoError(t, err)

	assert.Equal(t, firstStats, secondStats)
	assert.Equal(t, firstParks, secondParks)

	logs, err := os.ReadFile(filepath.Join(e.dir, "logs", "amenities.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(logs, []byte("\n")))
}

func TestPipeline_FetchFailureLeavesDatabaseUntouched(t *testing.T) {
	e := newEnv(t)
	httpErr := &nps.HTTPError{Endpoint: "amenities", StatusCode: http.StatusInternalServerError}
	p := e.pipeline(&fakeFetcher{parks: parksBody, amenitiesErr: httpErr}, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, nps.ErrStatus))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.metrics.FetchErrors.WithLabelValues("amenities")))

	_, statErr := os.Stat(e.dbPath)
	assert.True(t, os.IsNotExist(statErr), "database must not be created")

	_, statErr = os.Stat(filepath.Join(e.dir, "data", "park_names.json"))
	assert.NoError(t, statErr, "parks snapshot precedes the amenities fetch")
}

func TestPipeline_FetchFailureKeepsPreviousRows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.pipeline(&fakeFetcher{parks: parksBody, amenities: amenitiesBody}, nil).Run(ctx)
	require.NoError(t, err)
	before, err := e.store.Stats(ctx)
	require.NoError(t, err)

	changed := `{"data":[{"id":"P9","fullName":"New Park"}]}`
	_, err = e.pipeline(&fakeFetcher{parks: changed, amenitiesErr: &nps.HTTPError{StatusCode: 503}}, nil).Run(ctx)
	require.Error(t, err)

	after, err := e.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPipeline_MalformedBodySkipsSnapshot(t *testing.T) {
	e := newEnv(t)
	p := e.pipeline(&fakeFetcher{parks: `not json`, amenities: amenitiesBody}, nil)

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, nps.ErrMalformed))

	_, statErr := os.Stat(filepath.Join(e.dir, "data", "park_names.json"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(e.dbPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPipeline_News(t *testing.T) {
	e := newEnv(t)
	now := time.Now().UTC()
	news := &fakeNews{items: []nps.NewsItem{
		{ID: "yell:1", ParkCode: "yell", Feed: "yell", Title: "Road update", PublishedAt: now, CollectedAt: now},
	}}
	p := e.pipeline(&fakeFetcher{parks: parksBody, amenities: amenitiesBody}, news)

	report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded["park_news"])
	assert.Equal(t, 1, report.Totals["park_news"])
}
