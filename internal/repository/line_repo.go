// Package repository serves the read-model queries behind the /lines and /stops endpoints.
// It is intentionally separate from internal/pgfeed: pgfeed loads the entire static
// timetable for the routing core, while this package answers small, single-purpose
// display queries the way a web UI would call them.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/antigravity/transit-router/internal/models"
)

type LineRepository struct {
	db *pgxpool.Pool
}

func NewLineRepository(db *pgxpool.Pool) *LineRepository {
	return &LineRepository{db: db}
}

func (r *LineRepository) GetAllLines(ctx context.Context) ([]models.Line, error) {
	query := `
		SELECT l.id, l.code, COALESCE(l.short_name, l.code), COALESCE(l.color, '#000000'),
		       (SELECT COUNT(*) FROM line_stops WHERE line_id = l.id) AS stop_count
		FROM lines l
		ORDER BY l.code ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Color, &l.StopCount); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *LineRepository) GetLineDetails(ctx context.Context, lineID string) (*models.Line, []models.Stop, error) {
	var l models.Line
	err := r.db.QueryRow(ctx, `
		SELECT id, code, COALESCE(short_name, code), COALESCE(color, '#000000')
		FROM lines WHERE id = $1
	`, lineID).Scan(&l.ID, &l.Code, &l.Name, &l.Color)
	if err != nil {
		return nil, nil, err
	}

	// TODO: support a direction query parameter; this always returns the outbound pattern.
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.name, ST_X(s.location::geometry), ST_Y(s.location::geometry), ls.stop_sequence
		FROM stops s
		JOIN line_stops ls ON s.id = ls.stop_id
		WHERE ls.line_id = $1 AND ls.direction = 0
		ORDER BY ls.stop_sequence ASC
	`, lineID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lon, &s.Lat, &s.Sequence); err != nil {
			return nil, nil, err
		}
		stops = append(stops, s)
	}
	return &l, stops, rows.Err()
}

func (r *LineRepository) GetStopsInViewport(ctx context.Context, minLat, minLon, maxLat, maxLon float64) ([]models.Stop, error) {
	query := `
		SELECT id, name, ST_X(location::geometry), ST_Y(location::geometry)
		FROM stops
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)::geography
		LIMIT 200
	`
	rows, err := r.db.Query(ctx, query, minLon, minLat, maxLon, maxLat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []models.Stop
	for rows.Next() {
		var s models.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lon, &s.Lat); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

func (r *LineRepository) GetStopDetails(ctx context.Context, stopID string) (*models.Stop, []models.Line, error) {
	var s models.Stop
	err := r.db.QueryRow(ctx, `
		SELECT id, name, ST_X(location::geometry), ST_Y(location::geometry)
		FROM stops WHERE id = $1
	`, stopID).Scan(&s.ID, &s.Name, &s.Lon, &s.Lat)
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT l.id, l.code, COALESCE(l.short_name, l.code), COALESCE(l.color, '#000000')
		FROM lines l
		JOIN line_stops ls ON ls.line_id = l.id
		WHERE ls.stop_id = $1
		ORDER BY l.code ASC
	`, stopID)
	if err != nil {
		return &s, nil, err
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var l models.Line
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Color); err != nil {
			return &s, nil, err
		}
		lines = append(lines, l)
	}
	return &s, lines, rows.Err()
}

func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
