package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultTouchInterval is how stale updated_at may get before a read
// refreshes it.
const DefaultTouchInterval = time.Minute

// EntryModel is the Bun model for a stored key.
type EntryModel struct {
	bun.BaseModel `bun:"table:session_entries,alias:se"`

	ID        uuid.UUID `bun:"id,pk"`
	Key       string    `bun:"entry_key,notnull,unique"`
	Value     string    `bun:"entry_value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// NewEntriesRepository looks entries up by their key.
func NewEntriesRepository(db *bun.DB) repository.Repository[*EntryModel] {
	return repository.NewRepository[*EntryModel](db, repository.ModelHandlers[*EntryModel]{
		NewRecord: func() *EntryModel { return &EntryModel{} },
		GetID: func(e *EntryModel) uuid.UUID {
			if e == nil {
				return uuid.Nil
			}
			return e.ID
		},
		SetID: func(e *EntryModel, id uuid.UUID) {
			if e != nil {
				e.ID = id
			}
		},
		GetIdentifier: func() string {
			return "entry_key"
		},
	})
}

// Bun stores keys in the session_entries table. Reads refresh updated_at
// so Prune only drops entries nobody used.
type Bun struct {
	entries    repository.Repository[*EntryModel]
	db         *bun.DB
	now        func() time.Time
	touchAfter time.Duration
}

var _ Store = (*Bun)(nil)

// NewBun wraps a migrated database.
func NewBun(db *bun.DB) *Bun {
	return &Bun{
		entries:    NewEntriesRepository(db),
		db:         db,
		now:        time.Now,
		touchAfter: DefaultTouchInterval,
	}
}

// OpenSQLite opens a SQLite database through the sqliteshim driver, which
// picks the cgo or pure Go implementation available at build time.
func OpenSQLite(ctx context.Context, dsn string) (*Bun, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows one writer; serializing keeps in-memory databases shared.
	sqldb.SetMaxOpenConns(1)

	return openMigrated(ctx, persistenceConfig{driver: DriverSQLite, dsn: dsn}, sqldb, sqlitedialect.New())
}

// OpenPostgres opens a Postgres database using lib/pq.
func OpenPostgres(ctx context.Context, dsn string) (*Bun, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return openMigrated(ctx, persistenceConfig{driver: DriverPostgres, dsn: dsn}, sqldb, pgdialect.New())
}

// DB exposes the underlying handle.
func (b *Bun) DB() *bun.DB {
	return b.db
}

func (b *Bun) Get(ctx context.Context, key string) (string, bool, error) {
	record, err := b.entries.GetByIdentifier(ctx, key)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", false, nil
		}
		return "", false, wrapErr(err, "get", key)
	}

	if err := b.touch(ctx, record); err != nil {
		return "", false, err
	}
	return record.Value, true, nil
}

func (b *Bun) touch(ctx context.Context, record *EntryModel) error {
	now := b.now().UTC()
	if now.Sub(record.UpdatedAt) < b.touchAfter {
		return nil
	}

	record.UpdatedAt = now
	_, err := b.entries.UpdateTx(ctx, b.db, record, repository.UpdateByID(record.ID.String()))
	return wrapErr(err, "touch", record.Key)
}

func (b *Bun) Set(ctx context.Context, key, value string) error {
	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return b.upsertTx(ctx, tx, key, value)
	})
	return wrapErr(err, "set", key)
}

func (b *Bun) upsertTx(ctx context.Context, tx bun.IDB, key, value string) error {
	now := b.now().UTC()

	record, err := b.entries.GetByIdentifierTx(ctx, tx, key)
	if err == nil {
		record.Value = value
		record.UpdatedAt = now
		_, err = b.entries.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
		return err
	}

	if !repository.IsRecordNotFound(err) {
		return err
	}

	_, err = b.entries.CreateTx(ctx, tx, &EntryModel{
		ID:        uuid.New(),
		Key:       key,
		Value:     value,
		UpdatedAt: now,
	})
	return err
}

func (b *Bun) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	_, err := b.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where("entry_key IN (?)", bun.In(keys)).
		Exec(ctx)
	return wrapErr(err, "delete", strings.Join(keys, ","))
}

// Prune removes entries that were neither written nor read since
// olderThan. Sessions abandoned by their browser are otherwise kept forever.
func (b *Bun) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := b.db.NewDelete().
		Model((*EntryModel)(nil)).
		Where("updated_at < ?", olderThan.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, wrapErr(err, "prune", "")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (b *Bun) Close() error {
	return b.db.Close()
}
