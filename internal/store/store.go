package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/elonfeng/parksync/pkg/nps"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Park is a row of the parks table. Nil text fields are stored as NULL.
type Park struct {
	ID          *string `db:"id" json:"id"`
	FullName    *string `db:"fullName" json:"fullName"`
	ParkCode    *string `db:"parkCode" json:"parkCode"`
	States      *string `db:"states" json:"states"`
	Description *string `db:"description" json:"description"`
	Latitude    float64 `db:"latitude" json:"latitude"`
	Longitude   float64 `db:"longitude" json:"longitude"`
}

// Activity is a row of the activities table, scoped to a park.
type Activity struct {
	ParkID     *string `db:"park_id" json:"park_id"`
	ActivityID *string `db:"activity_id" json:"id"`
	Name       *string `db:"name" json:"name"`
}

// Amenity is a row of the amenities table.
type Amenity struct {
	ID   *string `db:"id" json:"id"`
	Name *string `db:"name" json:"name"`
}

// ParkAmenity links a park code to an amenity.
type ParkAmenity struct {
	ParkCode  *string `db:"park_code" json:"park_code"`
	AmenityID *string `db:"amenity_id" json:"amenity_id"`
}

// Batch is everything one sync writes, loaded in a single transaction.
type Batch struct {
	Parks         []Park
	Activities    []Activity
	Amenities     []Amenity
	ParkAmenities []ParkAmenity
	News          []nps.NewsItem
}

// ParkListOpts controls park listing.
type ParkListOpts struct {
	State string
	Limit int
}

// AmenityListOpts controls amenity listing.
type AmenityListOpts struct {
	ParkCode string
	Limit    int
}

// Store is the persistence interface.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context, b *Batch) (map[string]int, error)

	ListParks(ctx context.Context, opts ParkListOpts) ([]Park, error)
	ListActivities(ctx context.Context, parkID string) ([]Activity, error)
	ListAmenities(ctx context.Context, opts AmenityListOpts) ([]Amenity, error)
	Stats(ctx context.Context) (map[string]int, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// Open prepares a handle on the SQLite file at path. No connection is made
// and the file is not created until the first statement runs.
func Open(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return &SQLiteStore{db: db}, nil
}

// New opens a SQLite database and ensures the schema exists.
func New(ctx context.Context, path string) (*SQLiteStore, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates any missing tables. It is a no-op on an up to date
// database.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const (
	upsertPark = `
		INSERT INTO parks (id, fullName, parkCode, states, description, latitude, longitude)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fullName = excluded.fullName,
			parkCode = excluded.parkCode,
			states = excluded.states,
			description = excluded.description,
			latitude = excluded.latitude,
			longitude = excluded.longitude`

	upsertActivity = `
		INSERT INTO activities (park_id, activity_id, name)
		VALUES (?, ?, ?)
		ON CONFLICT(park_id, activity_id) DO UPDATE SET
			name = excluded.name`

	upsertAmenity = `
		INSERT INTO amenities (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name`

	upsertParkAmenity = `
		INSERT INTO park_amenities (park_code, amenity_id)
		VALUES (?, ?)
		ON CONFLICT(park_code, amenity_id) DO NOTHING`

	upsertNews = `
		INSERT INTO park_news (id, park_code, feed, title, url, published_at, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			published_at = excluded.published_at,
			collected_at = excluded.collected_at`
)

// Load upserts the whole batch in one transaction and returns the number of
// rows written per table. On any error nothing is committed.
func (s *SQLiteStore) Load(ctx context.Context, b *Batch) (map[string]int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[string]int, len(Tables))

	err = execEach(ctx, tx, "parks", upsertPark, len(b.Parks), func(i int) []any {
		p := b.Parks[i]
		return []any{nullable(p.ID), nullable(p.FullName), nullable(p.ParkCode),
			nullable(p.States), nullable(p.Description), p.Latitude, p.Longitude}
	})
	if err != nil {
		return nil, err
	}
	counts["parks"] = len(b.Parks)

	err = execEach(ctx, tx, "activities", upsertActivity, len(b.Activities), func(i int) []any {
		a := b.Activities[i]
		return []any{nullable(a.ParkID), nullable(a.ActivityID), nullable(a.Name)}
	})
	if err != nil {
		return nil, err
	}
	counts["activities"] = len(b.Activities)

	err = execEach(ctx, tx, "amenities", upsertAmenity, len(b.Amenities), func(i int) []any {
		a := b.Amenities[i]
		return []any{nullable(a.ID), nullable(a.Name)}
	})
	if err != nil {
		return nil, err
	}
	counts["amenities"] = len(b.Amenities)

	err = execEach(ctx, tx, "park_amenities", upsertParkAmenity, len(b.ParkAmenities), func(i int) []any {
		pa := b.ParkAmenities[i]
		return []any{nullable(pa.ParkCode), nullable(pa.AmenityID)}
	})
	if err != nil {
		return nil, err
	}
	counts["park_amenities"] = len(b.ParkAmenities)

	err = execEach(ctx, tx, "park_news", upsertNews, len(b.News), func(i int) []any {
		n := b.News[i]
		return []any{n.ID, n.ParkCode, n.Feed, n.Title, n.URL, n.PublishedAt, n.CollectedAt}
	})
	if err != nil {
		return nil, err
	}
	counts["park_news"] = len(b.News)

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit load: %w", err)
	}
	return counts, nil
}

func execEach(ctx context.Context, tx *sqlx.Tx, table, query string, n int, args func(int) []any) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare %s upsert: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("upsert %s row %d: %w", table, i, err)
		}
	}
	return nil
}

// nullable turns a nil pointer into a SQL NULL.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func (s *SQLiteStore) ListParks(ctx context.Context, opts ParkListOpts) ([]Park, error) {
	query := "SELECT * FROM parks WHERE 1=1"
	var args []any

	if opts.State != "" {
		query += " AND (',' || upper(replace(states, ' ', '')) || ',') LIKE ?"
		args = append(args, "%,"+strings.ToUpper(strings.TrimSpace(opts.State))+",%")
	}

	query += " ORDER BY fullName"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var parks []Park
	if err := s.db.SelectContext(ctx, &parks, query, args...); err != nil {
		return nil, fmt.Errorf("list parks: %w", err)
	}
	return parks, nil
}

func (s *SQLiteStore) ListActivities(ctx context.Context, parkID string) ([]Activity, error) {
	var activities []Activity
	err := s.db.SelectContext(ctx, &activities,
		"SELECT park_id, activity_id, name FROM activities WHERE park_id = ? ORDER BY name", parkID)
	if err != nil {
		return nil, fmt.Errorf("list activities %s: %w", parkID, err)
	}
	return activities, nil
}

func (s *SQLiteStore) ListAmenities(ctx context.Context, opts AmenityListOpts) ([]Amenity, error) {
	query := "SELECT a.id, a.name FROM amenities a"
	var args []any

	if opts.ParkCode != "" {
		query += " JOIN park_amenities pa ON pa.amenity_id = a.id WHERE lower(pa.park_code) = lower(?)"
		args = append(args, opts.ParkCode)
	}

	query += " ORDER BY a.name"

	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var amenities []Amenity
	if err := s.db.SelectContext(ctx, &amenities, query, args...); err != nil {
		return nil, fmt.Errorf("list amenities: %w", err)
	}
	return amenities, nil
}

// Stats returns the row count of every table.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(Tables))
	for _, table := range Tables {
		var n int
		if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+table); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
