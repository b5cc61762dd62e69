package store

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"time"

	"github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the SQL migrations for the session entries table.
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

func init() {
	persistence.RegisterModel((*EntryModel)(nil))
}

// persistenceConfig feeds the persistence client. Only the dialect name and
// connection string vary between drivers.
type persistenceConfig struct {
	driver string
	dsn    string
}

func (c persistenceConfig) GetDebug() bool                { return false }
func (c persistenceConfig) GetDriver() string             { return c.driver }
func (c persistenceConfig) GetServer() string             { return c.dsn }
func (c persistenceConfig) GetDSN() string                { return c.dsn }
func (c persistenceConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c persistenceConfig) GetOtelIdentifier() string     { return "go-auth-portal" }

// migrate runs the embedded migrations on sqldb and returns the Bun handle
// the persistence client built around it.
func migrate(ctx context.Context, cfg persistenceConfig, sqldb *sql.DB, dialect schema.Dialect) (*bun.DB, error) {
	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		return nil, wrapErr(err, "connect", "")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, wrapErr(err, "migrate", "")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets(DriverPostgres, DriverSQLite),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return nil, wrapErr(err, "migrate", "")
	}

	if err := client.Migrate(ctx); err != nil {
		return nil, wrapErr(err, "migrate", "")
	}

	return client.DB(), nil
}

func openMigrated(ctx context.Context, cfg persistenceConfig, sqldb *sql.DB, dialect schema.Dialect) (*Bun, error) {
	db, err := migrate(ctx, cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return NewBun(db), nil
}
