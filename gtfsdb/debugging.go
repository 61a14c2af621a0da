package gtfsdb

import (
	"context"
	"fmt"
)

// TableCounts returns the row count of every schedule table.
func (c *Client) TableCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(scheduleTables))
	for _, table := range scheduleTables {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := c.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("error counting %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}
