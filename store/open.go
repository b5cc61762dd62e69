package store

import (
	"context"
	"fmt"
	"strings"
)

// Supported drivers for Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Drivers lists every driver name accepted by Open.
var Drivers = []any{DriverMemory, DriverFile, DriverSQLite, DriverPostgres}

// Open builds a Store for driver. dsn is a file path for the file driver
// and a connection string for the SQL drivers; memory ignores it.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		s, err := NewFile(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
