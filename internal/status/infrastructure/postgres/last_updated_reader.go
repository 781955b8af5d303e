package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	status "nowcasting-dashboard/internal/status/domain"
)

var inputColumns = map[string]string{
	"pv":        "pv",
	"gsp":       "gsp",
	"satellite": "satellite",
	"nwp":       "nwp",
}

// LastUpdatedReader reads input_data_last_updated and forecast creation times.
type LastUpdatedReader struct {
	db *sql.DB
}

// NewLastUpdatedReader constructs a LastUpdatedReader.
func NewLastUpdatedReader(db *sql.DB) *LastUpdatedReader {
	return &LastUpdatedReader{db: db}
}

// LastUpdated returns when a source was last pulled, or nil when unknown.
func (r *LastUpdatedReader) LastUpdated(ctx context.Context, source string) (*time.Time, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("status last updated: nil db")
	}
	column, ok := inputColumns[source]
	if !ok {
		return nil, fmt.Errorf("status last updated: unknown source %q", source)
	}

	// column comes from the fixed whitelist above
	query := fmt.Sprintf(`
SELECT %s
FROM input_data_last_updated
ORDER BY created_utc DESC
LIMIT 1`, column)

	var ts sql.NullTime
	if err := r.db.QueryRowContext(ctx, query).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	value := ts.Time.UTC()
	return &value, nil
}

// LatestForecastCreated returns the newest forecast creation time for a region.
func (r *LastUpdatedReader) LatestForecastCreated(ctx context.Context, scope status.Scope, regionID int) (*time.Time, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("status forecast created: nil db")
	}
	if scope == status.ScopeNational {
		regionID = 0
	}
	if regionID < 0 {
		return nil, fmt.Errorf("status forecast created: invalid region %d", regionID)
	}

	var ts sql.NullTime
	err := r.db.QueryRowContext(ctx, `
SELECT MAX(f.created_utc)
FROM forecast f
JOIN location l ON l.id = f.location_id
WHERE l.gsp_id = $1`, regionID).Scan(&ts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	value := ts.Time.UTC()
	return &value, nil
}
