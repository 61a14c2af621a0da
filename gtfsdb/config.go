package gtfsdb

import (
	"log/slog"

	"grouptrip.org/internal/appconf"
)

const (
	// DriverSQLite selects the pure Go SQLite driver (modernc.org/sqlite).
	DriverSQLite = "sqlite"
	// DriverPostgres selects the pgx stdlib driver.
	DriverPostgres = "pgx"
)

// Config holds configuration options for the Client
type Config struct {
	Driver  string              // DriverSQLite or DriverPostgres; empty means SQLite
	DBPath  string              // SQLite file, ":memory:", or a Postgres DSN
	Env     appconf.Environment // Test requires an in-memory SQLite database
	Logger  *slog.Logger
	verbose bool
}

func NewConfig(driver, dbPath string, env appconf.Environment, verbose bool) Config {
	config := Config{
		Driver:  driver,
		DBPath:  dbPath,
		Env:     env,
		verbose: verbose,
	}

	return config
}

func (c Config) driverName() string {
	if c.Driver == "" {
		return DriverSQLite
	}
	return c.Driver
}

func (c Config) inMemory() bool {
	return c.driverName() == DriverSQLite && c.DBPath == ":memory:"
}
