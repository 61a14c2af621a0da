package gtfsdb

import (
	"context"
	"database/sql"
	"fmt"

	"grouptrip.org/internal/logging"
)

var scheduleTables = []string{"stop_times", "frequencies", "trips", "stops", "import_metadata"}

// ReplaceAll swaps the whole schedule for ds inside one transaction and stamps
// meta as the new import. Readers observe either the old or the new data.
func (c *Client) ReplaceAll(ctx context.Context, ds Dataset, meta ImportMetadata) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "replace_schedule")

	for _, table := range scheduleTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("error clearing %s: %w", table, err)
		}
	}

	err = c.insertBatch(ctx, tx, "stops", `
		INSERT INTO stops (stop_id, stop_code, stop_name, stop_lat, stop_lon, wheelchair_boarding)
		VALUES (?, ?, ?, ?, ?, ?)`,
		len(ds.Stops), func(i int) []any {
			s := ds.Stops[i]
			return []any{s.ID, toNullString(s.Code), toNullString(s.Name), s.Lat, s.Lon, s.WheelchairBoarding}
		})
	if err != nil {
		return err
	}

	err = c.insertBatch(ctx, tx, "trips", `
		INSERT INTO trips (trip_id, base_trip_id, route_id, service_date)
		VALUES (?, ?, ?, ?)`,
		len(ds.Trips), func(i int) []any {
			t := ds.Trips[i]
			return []any{t.ID, t.BaseTripID, t.RouteID, t.ServiceDate}
		})
	if err != nil {
		return err
	}

	err = c.insertBatch(ctx, tx, "stop_times", `
		INSERT INTO stop_times (trip_id, stop_id, arrival_time, departure_time, stop_sequence)
		VALUES (?, ?, ?, ?, ?)`,
		len(ds.StopTimes), func(i int) []any {
			st := ds.StopTimes[i]
			return []any{st.TripID, st.StopID, st.ArrivalTime, st.DepartureTime, st.StopSequence}
		})
	if err != nil {
		return err
	}

	err = c.insertBatch(ctx, tx, "frequencies", `
		INSERT INTO frequencies (trip_id, start_time, end_time, headway_secs)
		VALUES (?, ?, ?, ?)`,
		len(ds.Frequencies), func(i int) []any {
			f := ds.Frequencies[i]
			return []any{f.TripID, f.StartTime, f.EndTime, f.HeadwaySecs}
		})
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, rebind(c.config.driverName(), `
		INSERT INTO import_metadata (id, file_hash, file_source, import_time, window_start, window_days)
		VALUES (?, ?, ?, ?, ?, ?)`), 1, meta.FileHash, meta.FileSource, meta.ImportTime, meta.WindowStart, meta.WindowDays)
	if err != nil {
		return fmt.Errorf("error writing import metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

func (c *Client) insertBatch(ctx context.Context, tx *sql.Tx, table, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, rebind(c.config.driverName(), query))
	if err != nil {
		return fmt.Errorf("error preparing %s insert: %w", table, err)
	}
	defer logging.SafeCloseWithLogging(stmt, c.logger, "insert_"+table)

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("error inserting into %s: %w", table, err)
		}
	}
	return nil
}
