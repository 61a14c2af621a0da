package gtfsdb

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"grouptrip.org/internal/logging"
)

// queryAll runs query and scans every row with scan.
func queryAll[T any](ctx context.Context, c *Client, query string, scan func(*sql.Rows) (T, error), args ...any) (result []T, err error) {
	rows, err := c.DB.QueryContext(ctx, rebind(c.config.driverName(), query), args...)
	if err != nil {
		return nil, err
	}
	defer logging.HandleDeferredError(&err, rows.Close, c.logger, "close_rows")

	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// toNullString converts a string to sql.NullString
func toNullString(s string) sql.NullString {
	return sql.NullString{
		String: s,
		Valid:  s != "",
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (c *Client) logVerbose(msg string, attrs ...slog.Attr) {
	if !c.config.verbose {
		return
	}
	logging.LogOperation(c.logger, msg, append(attrs, slog.String("component", "gtfsdb"))...)
}
