package study

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
)

type Repository interface {
	ListStudies(ctx context.Context) (map[string]Study, error)
	ListStudiesWithin(ctx context.Context, bound orb.Bound) (map[string]Study, error)
	GetStudy(ctx context.Context, id string) (*Study, error)
}

type dbStudy struct {
	ID          string  `db:"id"`
	Title       string  `db:"title"`
	Category    *string `db:"category"`
	Description *string `db:"description"`
	PlaceName   *string `db:"place_name"`
	Capacity    *int    `db:"capacity"`

	Longitude float64 `db:"longitude"`
	Latitude  float64 `db:"latitude"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const selectStudies = `
	SELECT id, title, category, description, place_name, capacity, longitude, latitude, created_at, updated_at
	FROM studies`

type pgRepo struct {
	db *sqlx.DB
}

var _ Repository = (*pgRepo)(nil)

func NewPgRepository(db *sql.DB) *pgRepo {
	return &pgRepo{db: sqlx.NewDb(db, "postgres")}
}

func (r *pgRepo) ListStudies(ctx context.Context) (map[string]Study, error) {
	var rows []dbStudy
	err := r.db.SelectContext(ctx, &rows, selectStudies+` ORDER BY id;`)
	if err != nil {
		return nil, fmt.Errorf("select studies: %w", err)
	}

	return toMap(rows), nil
}

func (r *pgRepo) ListStudiesWithin(ctx context.Context, bound orb.Bound) (map[string]Study, error) {
	query := selectStudies + `
	WHERE longitude BETWEEN $1 AND $2
	AND latitude BETWEEN $3 AND $4
	ORDER BY id;`

	var rows []dbStudy
	err := r.db.SelectContext(ctx, &rows, query, bound.Min.Lon(), bound.Max.Lon(), bound.Min.Lat(), bound.Max.Lat())
	if err != nil {
		return nil, fmt.Errorf("select studies within bound: %w", err)
	}

	return toMap(rows), nil
}

func (r *pgRepo) GetStudy(ctx context.Context, id string) (*Study, error) {
	var row dbStudy
	err := r.db.GetContext(ctx, &row, selectStudies+` WHERE id = $1 LIMIT 1;`, id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("select study: %w", err)
	} else if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	s := row.Map()
	return &s, nil
}

func toMap(rows []dbStudy) map[string]Study {
	studies := make(map[string]Study, len(rows))
	for i := range rows {
		studies[rows[i].ID] = rows[i].Map()
	}

	return studies
}

func (s dbStudy) Map() Study {
	st := Study{
		ID:       s.ID,
		Title:    s.Title,
		Location: Location{X: s.Longitude, Y: s.Latitude},
	}

	if s.Category != nil {
		st.Category = *s.Category
	}

	if s.Description != nil {
		st.Description = *s.Description
	}

	if s.PlaceName != nil {
		st.PlaceName = *s.PlaceName
	}

	if s.Capacity != nil {
		st.Capacity = *s.Capacity
	}

	return st
}

// InMemory is a Repository over a fixed set of studies. It is used when no
// database is configured.
type InMemory map[string]Study

var _ Repository = InMemory(nil)

func (m InMemory) ListStudies(context.Context) (map[string]Study, error) {
	out := make(map[string]Study, len(m))
	for id, s := range m {
		out[id] = s
	}

	return out, nil
}

func (m InMemory) ListStudiesWithin(_ context.Context, bound orb.Bound) (map[string]Study, error) {
	out := make(map[string]Study)
	for id, s := range m {
		if bound.Contains(s.Location.Point()) {
			out[id] = s
		}
	}

	return out, nil
}

func (m InMemory) GetStudy(_ context.Context, id string) (*Study, error) {
	s, ok := m[id]
	if !ok {
		return nil, nil
	}

	return &s, nil
}
