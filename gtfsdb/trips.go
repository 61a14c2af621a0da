package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// ListTrips returns every dated trip whose id does not start with one of
// excludedPrefixes, ordered by id.
func (c *Client) ListTrips(ctx context.Context, excludedPrefixes []string) ([]Trip, error) {
	trips, err := queryAll(ctx, c, `
		SELECT trip_id, base_trip_id, route_id, service_date
		FROM trips
		ORDER BY trip_id`,
		func(rows *sql.Rows) (Trip, error) {
			var t Trip
			err := rows.Scan(&t.ID, &t.BaseTripID, &t.RouteID, &t.ServiceDate)
			return t, err
		})
	if err != nil {
		return nil, fmt.Errorf("error listing trips: %w", err)
	}

	if len(excludedPrefixes) == 0 {
		return trips, nil
	}

	kept := trips[:0]
	for _, t := range trips {
		if hasAnyPrefix(t.ID, excludedPrefixes) {
			continue
		}
		kept = append(kept, t)
	}
	return kept, nil
}
