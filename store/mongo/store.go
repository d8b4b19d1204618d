package mongo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	points "github.com/xraph/points"
	"github.com/xraph/points/account"
	pointsstore "github.com/xraph/points/store"
)

// Collection name constants.
const (
	colAccounts = "points_accounts"
)

// compile-time interface check
var _ pointsstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all points collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("%w: mongo %s indexes: %w", points.ErrMigrationFailed, col, err)
		}
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
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, points.ErrRecordNotFound
		}
		return nil, fmt.Errorf("points/mongo: get account: %w", err)
	}
	return fromAccountModel(&m), nil
}

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return points.ErrAlreadyExists
		}
		return fmt.Errorf("points/mongo: create account: %w", err)
	}
	return nil
}

// Apply commits the mutation with a single findOneAndUpdate: $inc for the
// deltas, $currentDate for server timestamps and filter guards for every
// balance and precondition.
func (s *Store) Apply(ctx context.Context, userID string, mut *account.Mutation) (*account.Account, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	filter, update := applyDocs(userID, mut)

	var m accountModel
	err := s.mdb.Collection(colAccounts).
		FindOneAndUpdate(ctx, filter, update,
			options.FindOneAndUpdate().SetReturnDocument(options.After)).
		Decode(&m)
	if err != nil {
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("points/mongo: apply mutation: %w", err)
		}
		a, gerr := s.GetAccount(ctx, userID)
		if gerr != nil {
			return nil, gerr
		}
		if cerr := mut.Check(a); cerr != nil {
			return nil, cerr
		}
		return nil, points.ErrInsufficientPoints
	}
	return fromAccountModel(&m), nil
}

// applyDocs builds the filter and update documents for a mutation.
func applyDocs(userID string, mut *account.Mutation) (filter, update bson.M) {
	filter = bson.M{"_id": userID}
	inc := bson.M{}
	for _, i := range mut.Increments() {
		inc[string(i.Field)] = i.Delta
		if i.Delta < 0 {
			filter[string(i.Field)] = bson.M{"$gte": -i.Delta}
		} else {
			filter[string(i.Field)] = bson.M{"$lte": int64(math.MaxInt64) - i.Delta}
		}
	}
	if conds := mut.Conditions(); len(conds) > 0 {
		and := make(bson.A, 0, len(conds))
		for _, c := range conds {
			and = append(and, bson.M{"$or": bson.A{
				bson.M{string(c.Field): nil},
				bson.M{string(c.Field): bson.M{"$lte": c.Cutoff}},
			}})
		}
		filter["$and"] = and
	}

	currentDate := bson.M{"updated_at": true}
	for _, f := range mut.Timestamps() {
		currentDate[string(f)] = true
	}

	update = bson.M{"$currentDate": currentDate}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	return filter, update
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all points collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "last_claim_at", Value: 1}}},
			{Keys: bson.D{{Key: "updated_at", Value: -1}}},
		},
	}
}
