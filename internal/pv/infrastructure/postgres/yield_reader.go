package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	pv "nowcasting-dashboard/internal/pv/domain"
)

// YieldReader reads PV systems and their yields.
type YieldReader struct {
	db *sql.DB
}

// NewYieldReader constructs a YieldReader.
func NewYieldReader(db *sql.DB) *YieldReader {
	return &YieldReader{db: db}
}

// SystemIDs returns every known PV system id in ascending order.
func (r *YieldReader) SystemIDs(ctx context.Context) ([]int, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pv system ids: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT pv_system_id
FROM pv_system
ORDER BY pv_system_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, int(id))
	}
	return ids, rows.Err()
}

// Yields returns readings at or after since for the given systems.
func (r *YieldReader) Yields(ctx context.Context, systemIDs []int, since time.Time) ([]pv.Yield, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("pv yields: nil db")
	}
	if len(systemIDs) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(systemIDs))
	for i, id := range systemIDs {
		ids[i] = int64(id)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT s.pv_system_id, y.datetime_utc, y.solar_generation_kw
FROM pv_yield y
JOIN pv_system s ON s.id = y.pv_system_id
WHERE s.pv_system_id = ANY($1)
  AND y.datetime_utc >= $2
ORDER BY s.pv_system_id, y.datetime_utc`, ids, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pv.Yield
	for rows.Next() {
		var (
			id int64
			at time.Time
			kw sql.NullFloat64
		)
		if err := rows.Scan(&id, &at, &kw); err != nil {
			return nil, err
		}
		if !kw.Valid {
			continue
		}
		out = append(out, pv.Yield{SystemID: int(id), DatetimeUTC: at.UTC(), SolarGenerationKW: kw.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pv.Dedupe(out), nil
}
