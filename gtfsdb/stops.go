package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// ListStops returns every stop ordered by id.
func (c *Client) ListStops(ctx context.Context) ([]Stop, error) {
	stops, err := queryAll(ctx, c, `
		SELECT stop_id, stop_code, stop_name, stop_lat, stop_lon, wheelchair_boarding
		FROM stops
		ORDER BY stop_id`,
		func(rows *sql.Rows) (Stop, error) {
			var s Stop
			var code, name sql.NullString
			err := rows.Scan(&s.ID, &code, &name, &s.Lat, &s.Lon, &s.WheelchairBoarding)
			s.Code = code.String
			s.Name = name.String
			return s, err
		})
	if err != nil {
		return nil, fmt.Errorf("error listing stops: %w", err)
	}
	return stops, nil
}
