package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	points "github.com/xraph/points"
	"github.com/xraph/points/account"
	pointsstore "github.com/xraph/points/store"
)

// compile-time interface check
var _ pointsstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("points/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: sqlite: %w", points.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) GetAccount(ctx context.Context, userID string) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, points.ErrRecordNotFound
		}
		return nil, fmt.Errorf("points/sqlite: get account: %w", err)
	}
	return fromAccountModel(m), nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("points/sqlite: create account: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return points.ErrAlreadyExists
	}
	return nil
}

// Apply runs the mutation as one UPDATE guarded on every balance and
// precondition. SQLite has no shared server clock, so timestamps use this
// process's UTC time.
func (s *Store) Apply(ctx context.Context, userID string, mut *account.Mutation) (*account.Account, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	t := now()
	incs := mut.Increments()
	q := s.sdb.NewUpdate((*accountModel)(nil))
	for _, inc := range incs {
		q = q.Set(fmt.Sprintf("%[1]s = %[1]s + ?", inc.Field), inc.Delta)
	}
	for _, f := range mut.Timestamps() {
		q = q.Set(fmt.Sprintf("%s = ?", f), t)
	}
	q = q.Set("updated_at = ?", t)
	q = q.Where("user_id = ?", userID)
	for _, inc := range incs {
		if inc.Delta < 0 {
			q = q.Where(fmt.Sprintf("%s >= ?", inc.Field), -inc.Delta)
		} else {
			q = q.Where(fmt.Sprintf("%s <= ?", inc.Field), int64(math.MaxInt64)-inc.Delta)
		}
	}
	for _, c := range mut.Conditions() {
		q = q.Where(fmt.Sprintf("(%[1]s IS NULL OR %[1]s <= ?)", c.Field), c.Cutoff.UTC())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("points/sqlite: apply mutation: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		a, err := s.GetAccount(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := mut.Check(a); err != nil {
			return nil, err
		}
		return nil, points.ErrInsufficientPoints
	}
	return s.GetAccount(ctx, userID)
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
