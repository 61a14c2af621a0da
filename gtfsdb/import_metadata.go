package gtfsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetImportMetadata returns the metadata of the last import, or sql.ErrNoRows
// when nothing was imported yet.
func (c *Client) GetImportMetadata(ctx context.Context) (ImportMetadata, error) {
	var m ImportMetadata
	err := c.DB.QueryRowContext(ctx, rebind(c.config.driverName(), `
		SELECT file_hash, file_source, import_time, window_start, window_days
		FROM import_metadata
		WHERE id = ?`), 1).Scan(&m.FileHash, &m.FileSource, &m.ImportTime, &m.WindowStart, &m.WindowDays)
	if err != nil {
		return ImportMetadata{}, err
	}
	return m, nil
}

// LastUpdated returns the store's change marker: the time of the last
// completed import, or the zero time when the store is empty.
func (c *Client) LastUpdated(ctx context.Context) (time.Time, error) {
	m, err := c.GetImportMetadata(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("error reading import metadata: %w", err)
	}
	return time.Unix(0, m.ImportTime).UTC(), nil
}
