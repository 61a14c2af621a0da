package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// ListFrequencies returns every frequency block ordered by template trip and start.
func (c *Client) ListFrequencies(ctx context.Context) ([]Frequency, error) {
	frequencies, err := queryAll(ctx, c, `
		SELECT trip_id, start_time, end_time, headway_secs
		FROM frequencies
		ORDER BY trip_id, start_time`,
		func(rows *sql.Rows) (Frequency, error) {
			var f Frequency
			err := rows.Scan(&f.TripID, &f.StartTime, &f.EndTime, &f.HeadwaySecs)
			return f, err
		})
	if err != nil {
		return nil, fmt.Errorf("error listing frequencies: %w", err)
	}
	return frequencies, nil
}
