package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"
)

// ListStopTimes returns every raw stop time ordered by trip and sequence.
func (c *Client) ListStopTimes(ctx context.Context) ([]StopTime, error) {
	stopTimes, err := queryAll(ctx, c, `
		SELECT trip_id, stop_id, arrival_time, departure_time, stop_sequence
		FROM stop_times
		ORDER BY trip_id, stop_sequence`,
		func(rows *sql.Rows) (StopTime, error) {
			var st StopTime
			err := rows.Scan(&st.TripID, &st.StopID, &st.ArrivalTime, &st.DepartureTime, &st.StopSequence)
			return st, err
		})
	if err != nil {
		return nil, fmt.Errorf("error listing stop times: %w", err)
	}
	return stopTimes, nil
}
