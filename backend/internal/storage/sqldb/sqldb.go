// Package sqldb stores convos, users and communities in a SQL database (postgres in
// production, sqlite for local runs and tests). Set- and sequence-valued fields
// (User.convos, Community.convos, Convo.children) live in link tables.
package sqldb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/threadline-dev/threadline/shared/config"
	"github.com/threadline-dev/threadline/shared/logger"
	"github.com/threadline-dev/threadline/shared/storage/dbutil"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Storage struct {
	db     *sqlx.DB
	driver string
	sb     sq.StatementBuilderType
	now    func() time.Time
}

type Option func(*Storage)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Storage, error) {
	connCfg := dbutil.DefaultConnectionConfig()
	if cfg.Private.Database.Driver == config.DriverSqlite {
		connCfg = dbutil.LightweightConnectionConfig()
	}

	logger.Log.Info("connecting to db", "driver", cfg.Private.Database.Driver)
	db, err := dbutil.Connect(ctx, cfg.Private.Database, connCfg)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("successfully connected to db")
	return NewFromDB(db, opts...), nil
}

// NewFromDB wraps an already opened database. The driver is taken from db.DriverName().
func NewFromDB(db *sqlx.DB, opts ...Option) *Storage {
	s := &Storage{
		db:     db,
		driver: db.DriverName(),
		sb:     dbutil.Builder(db.DriverName()),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Storage) Migrate(ctx context.Context) error {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, name := range files {
		content, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		for _, stmt := range splitStatements(string(content)) {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", name, err)
			}
		}
		logger.Log.Info("migration applied", "file", name, "driver", s.driver)
	}
	return nil
}

func splitStatements(script string) []string {
	var lines []string
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// RunInTx runs fn in a transaction carried by its context. Storage methods called with
// that context participate in the transaction.
func (s *Storage) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbutil.WithTx(ctx, s.db, fn)
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}

func (s *Storage) q(ctx context.Context) dbutil.Querier {
	return dbutil.QuerierFrom(ctx, s.db)
}

func (s *Storage) exec(ctx context.Context, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	res, err := s.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *Storage) selectInto(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.q(ctx).SelectContext(ctx, dest, query, args...)
}

func (s *Storage) getInto(ctx context.Context, dest interface{}, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.q(ctx).GetContext(ctx, dest, query, args...)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// Counts reports collection sizes. Used by the CLI and by tests.
type Counts struct {
	Convos          int `db:"convos"`
	Users           int `db:"users"`
	Communities     int `db:"communities"`
	Children        int `db:"children"`
	UserConvos      int `db:"user_convos"`
	CommunityConvos int `db:"community_convos"`
}

func (s *Storage) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := s.q(ctx).GetContext(ctx, &c, `
        SELECT
            (SELECT COUNT(*) FROM convos) AS convos,
            (SELECT COUNT(*) FROM users) AS users,
            (SELECT COUNT(*) FROM communities) AS communities,
            (SELECT COUNT(*) FROM convo_children) AS children,
            (SELECT COUNT(*) FROM user_convos) AS user_convos,
            (SELECT COUNT(*) FROM community_convos) AS community_convos
    `)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count collections: %w", err)
	}
	return c, nil
}
