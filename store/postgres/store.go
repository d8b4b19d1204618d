package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	points "github.com/xraph/points"
	"github.com/xraph/points/account"
	pointsstore "github.com/xraph/points/store"
)

// compile-time interface check
var _ pointsstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("points/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: postgres: %w", points.ErrMigrationFailed, err)
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
	err := s.pg.NewSelect(m).
		Where("user_id = $1", userID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, points.ErrRecordNotFound
		}
		return nil, fmt.Errorf("points/postgres: get account: %w", err)
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
	res, err := s.pg.NewInsert(m).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("points/postgres: create account: %w", err)
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

// Apply runs the mutation as one UPDATE ... RETURNING, so the record handed
// back is the row this write committed. Decrements, increments and
// preconditions all become guards in the WHERE clause: a write that would
// go negative, overflow or miss its precondition matches no row and
// changes nothing. Server timestamps come from the database clock.
func (s *Store) Apply(ctx context.Context, userID string, mut *account.Mutation) (*account.Account, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	query, args := applyQuery(userID, mut)

	m := new(accountModel)
	if err := s.pg.NewRaw(query, args...).Scan(ctx, m); err != nil {
		if isNoRows(err) {
			return nil, s.explainMiss(ctx, userID, mut)
		}
		return nil, fmt.Errorf("points/postgres: apply mutation: %w", err)
	}
	return fromAccountModel(m), nil
}

// applyQuery renders the guarded UPDATE for a mutation.
func applyQuery(userID string, mut *account.Mutation) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sets []string
	incs := mut.Increments()
	for _, inc := range incs {
		sets = append(sets, fmt.Sprintf("%[1]s = %[1]s + %[2]s", inc.Field, arg(inc.Delta)))
	}
	for _, f := range mut.Timestamps() {
		sets = append(sets, fmt.Sprintf("%s = NOW()", f))
	}
	sets = append(sets, "updated_at = NOW()")

	where := []string{"user_id = " + arg(userID)}
	for _, inc := range incs {
		if inc.Delta < 0 {
			where = append(where, fmt.Sprintf("%s >= %s", inc.Field, arg(-inc.Delta)))
		} else {
			where = append(where, fmt.Sprintf("%s <= %s", inc.Field, arg(math.MaxInt64-inc.Delta)))
		}
	}
	for _, c := range mut.Conditions() {
		where = append(where, fmt.Sprintf("(%[1]s IS NULL OR %[1]s <= %[2]s)", c.Field, arg(c.Cutoff)))
	}

	query := "UPDATE points_accounts SET " + strings.Join(sets, ", ") +
		" WHERE " + strings.Join(where, " AND ") +
		" RETURNING " + accountColumns
	return query, args
}

// explainMiss reports why a guarded UPDATE matched no row.
func (s *Store) explainMiss(ctx context.Context, userID string, mut *account.Mutation) error {
	a, err := s.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	if err := mut.Check(a); err != nil {
		return err
	}
	// The row changed between the UPDATE and the read.
	return points.ErrInsufficientPoints
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
