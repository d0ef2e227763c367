// Package store keeps analysis results in a SQLite database so runs over
// many stacks can be queried later. It uses the pure Go modernc.org/sqlite
// driver and needs no cgo.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"axonspread/pkg/quantify"
	"axonspread/pkg/report"
)

// ErrNotFound is returned when no analysis has the requested run ID
var ErrNotFound = errors.New("analysis not found")

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	run_id              TEXT PRIMARY KEY,
	created_at          TEXT NOT NULL,
	image_name          TEXT NOT NULL,
	observation         TEXT NOT NULL DEFAULT '',
	stack_digest        TEXT NOT NULL DEFAULT '',
	spread_x_pixel      REAL NOT NULL,
	spread_y_pixel      REAL NOT NULL,
	spread_z_pixel      REAL NOT NULL,
	spread_xy_pixel     REAL NOT NULL,
	spread_xyz_pixel    REAL NOT NULL,
	spread_x_um         REAL NOT NULL,
	spread_y_um         REAL NOT NULL,
	spread_z_um         REAL NOT NULL,
	spread_xy_um        REAL NOT NULL,
	spread_xyz_um       REAL NOT NULL,
	axonal_volume       REAL NOT NULL,
	fluorescence_px     REAL NOT NULL,
	fluorescence_um     REAL NOT NULL,
	rotation_angle      REAL NOT NULL,
	additional_rotation REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS analyses_image ON analyses(image_name);
`

const columns = `run_id, created_at, image_name, observation, stack_digest,
	spread_x_pixel, spread_y_pixel, spread_z_pixel, spread_xy_pixel, spread_xyz_pixel,
	spread_x_um, spread_y_um, spread_z_um, spread_xy_um, spread_xyz_um,
	axonal_volume, fluorescence_px, fluorescence_um, rotation_angle, additional_rotation`

// timeLayout is fixed width so that stored timestamps sort chronologically as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a results database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening results database: %w", err)
	}
	// a single connection serialises writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating results schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores one analysis. The record must carry a run ID and a result.
func (s *Store) Insert(ctx context.Context, r report.Record) error {
	if r.RunID == "" || r.Result == nil {
		return fmt.Errorf("record for %q needs a run ID and a result", r.ImageName)
	}
	res := r.Result
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.CreatedAt.UTC().Format(timeLayout), r.ImageName, r.Observation, r.StackDigest,
		res.SpreadXPixel, res.SpreadYPixel, res.SpreadZPixel, res.SpreadXYPixel, res.SpreadXYZPixel,
		res.SpreadXUm, res.SpreadYUm, res.SpreadZUm, res.SpreadXYUm, res.SpreadXYZUm,
		res.AxonalVolume, res.FluorescencePx, res.FluorescenceUm, res.RotationAngle, res.AdditionalRotation,
	)
	if err != nil {
		return fmt.Errorf("error storing analysis %s: %w", r.RunID, err)
	}
	return nil
}

// Get returns the analysis with the given run ID
func (s *Store) Get(ctx context.Context, runID string) (report.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM analyses WHERE run_id = ?`, runID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Record{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return r, err
}

// List returns analyses oldest first. A non-empty imageName restricts the
// list to that stack.
func (s *Store) List(ctx context.Context, imageName string) ([]report.Record, error) {
	query := `SELECT ` + columns + ` FROM analyses`
	var args []any
	if imageName != "" {
		query += ` WHERE image_name = ?`
		args = append(args, imageName)
	}
	query += ` ORDER BY created_at, run_id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing analyses: %w", err)
	}
	defer rows.Close()

	var records []report.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (report.Record, error) {
	var (
		r       report.Record
		res     quantify.SpreadResult
		created string
	)
	err := sc.Scan(&r.RunID, &created, &r.ImageName, &r.Observation, &r.StackDigest,
		&res.SpreadXPixel, &res.SpreadYPixel, &res.SpreadZPixel, &res.SpreadXYPixel, &res.SpreadXYZPixel,
		&res.SpreadXUm, &res.SpreadYUm, &res.SpreadZUm, &res.SpreadXYUm, &res.SpreadXYZUm,
		&res.AxonalVolume, &res.FluorescencePx, &res.FluorescenceUm, &res.RotationAngle, &res.AdditionalRotation)
	if err != nil {
		return report.Record{}, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return report.Record{}, fmt.Errorf("invalid timestamp %q for %s: %w", created, r.RunID, err)
	}
	r.Result = &res
	return r, nil
}
