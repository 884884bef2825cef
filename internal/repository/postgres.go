package repository

import (
	"context"
	"fmt"

	"citiescrowl/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the cities table used by the postgres dataset source.
const Schema = `
	CREATE TABLE IF NOT EXISTS cities (
		id BIGSERIAL PRIMARY KEY,
		prefecture VARCHAR(255) NOT NULL,
		city VARCHAR(255) NOT NULL,
		prefecture_kana VARCHAR(255) NOT NULL,
		city_kana VARCHAR(255) NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL
	);
`

// Repository implements the city dataset source for PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateSchema ensures the cities table exists
func (r *Repository) CreateSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("repository: failed to create schema: %w", err)
	}
	return nil
}

// LoadCities returns every city in insertion order
func (r *Repository) LoadCities(ctx context.Context) ([]models.City, error) {
	sql := `
		SELECT
			prefecture,
			city,
			prefecture_kana,
			city_kana,
			latitude,
			longitude
		FROM cities
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("repository: %w: failed to execute cities query: %w", ErrLoad, err)
	}
	defer rows.Close()

	cities := []models.City{}
	for rows.Next() {
		var c models.City
		err := rows.Scan(
			&c.Prefecture,
			&c.City,
			&c.PrefectureKana,
			&c.CityKana,
			&c.Latitude,
			&c.Longitude,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: %w: failed to scan city: %w", ErrLoad, err)
		}
		cities = append(cities, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: %w: error iterating rows: %w", ErrLoad, err)
	}

	return cities, nil
}

// ReplaceCities truncates the table and bulk inserts cities with COPY
func (r *Repository) ReplaceCities(ctx context.Context, cities []models.City) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE cities RESTART IDENTITY"); err != nil {
		return 0, fmt.Errorf("repository: failed to truncate cities: %w", err)
	}

	n, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"cities"},
		[]string{"prefecture", "city", "prefecture_kana", "city_kana", "latitude", "longitude"},
		pgx.CopyFromSlice(len(cities), func(i int) ([]any, error) {
			c := cities[i]
			return []any{c.Prefecture, c.City, c.PrefectureKana, c.CityKana, c.Latitude, c.Longitude}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("repository: failed to copy cities: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("repository: failed to commit import: %w", err)
	}
	return n, nil
}

// CountCities returns the number of stored cities
func (r *Repository) CountCities(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM cities").Scan(&count); err != nil {
		return 0, fmt.Errorf("repository: failed to count cities: %w", err)
	}
	return count, nil
}
