// Package mongo implements repository.Store on MongoDB. Rentals embed their
// customer and movie snapshots as sub-documents. Units of work use multi-document
// transactions, which need a replica set.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"movierental/model"
	"movierental/repository"
)

// Collection name constants.
const (
	colGenres    = "genres"
	colMovies    = "movies"
	colCustomers = "customers"
	colUsers     = "users"
	colRentals   = "rentals"
)

var _ repository.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, verifies the connection and creates indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return s, nil
}

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		colGenres: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colMovies: {
			{Keys: bson.D{{Key: "title", Value: 1}}},
		},
		colCustomers: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		colUsers: {
			{Keys: bson.D{{Key: "emailKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colRentals: {
			{
				Keys:    bson.D{{Key: "customer._id", Value: 1}, {Key: "movie._id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "dateOut", Value: -1}}},
		},
	}
	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close() error { return s.client.Disconnect(context.Background()) }

// ==================== Genre Store ====================

func (s *Store) ListGenres(ctx context.Context) ([]model.Genre, error) {
	var models []genreModel
	if err := s.findAll(ctx, colGenres, &models, bson.D{{Key: "name", Value: 1}}); err != nil {
		return nil, fmt.Errorf("mongo: list genres: %w", err)
	}
	out := make([]model.Genre, 0, len(models))
	for i := range models {
		g, err := fromGenreModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, nil
}

func (s *Store) FindGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var m genreModel
	if err := s.db.Collection(colGenres).FindOne(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromGenreModel(&m)
}

func (s *Store) CreateGenre(ctx context.Context, g *model.Genre) error {
	_, err := s.db.Collection(colGenres).InsertOne(ctx, toGenreModel(g))
	return mapErr(err)
}

func (s *Store) UpdateGenre(ctx context.Context, g *model.Genre) error {
	return s.updateOne(ctx, colGenres, g.ID, bson.M{"$set": bson.M{"name": g.Name}})
}

func (s *Store) DeleteGenre(ctx context.Context, id uuid.UUID) (*model.Genre, error) {
	var m genreModel
	if err := s.db.Collection(colGenres).FindOneAndDelete(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromGenreModel(&m)
}

// ==================== Movie Store ====================

func (s *Store) ListMovies(ctx context.Context) ([]model.Movie, error) {
	var models []movieModel
	if err := s.findAll(ctx, colMovies, &models, bson.D{{Key: "title", Value: 1}}); err != nil {
		return nil, fmt.Errorf("mongo: list movies: %w", err)
	}
	out := make([]model.Movie, 0, len(models))
	for i := range models {
		m, err := fromMovieModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, nil
}

func (s *Store) FindMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var m movieModel
	if err := s.db.Collection(colMovies).FindOne(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromMovieModel(&m)
}

func (s *Store) CreateMovie(ctx context.Context, m *model.Movie) error {
	_, err := s.db.Collection(colMovies).InsertOne(ctx, toMovieModel(m))
	return mapErr(err)
}

func (s *Store) UpdateMovie(ctx context.Context, m *model.Movie) error {
	doc := toMovieModel(m)
	return s.updateOne(ctx, colMovies, m.ID, bson.M{"$set": bson.M{
		"title":           doc.Title,
		"genre":           doc.Genre,
		"numberInStock":   doc.NumberInStock,
		"dailyRentalRate": doc.DailyRentalRate,
	}})
}

func (s *Store) DeleteMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var m movieModel
	if err := s.db.Collection(colMovies).FindOneAndDelete(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromMovieModel(&m)
}

// ==================== Customer Store ====================

func (s *Store) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	var models []customerModel
	if err := s.findAll(ctx, colCustomers, &models, bson.D{{Key: "name", Value: 1}}); err != nil {
		return nil, fmt.Errorf("mongo: list customers: %w", err)
	}
	out := make([]model.Customer, 0, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *Store) FindCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var m customerModel
	if err := s.db.Collection(colCustomers).FindOne(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromCustomerModel(&m)
}

func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	_, err := s.db.Collection(colCustomers).InsertOne(ctx, toCustomerModel(c))
	return mapErr(err)
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	return s.updateOne(ctx, colCustomers, c.ID, bson.M{"$set": bson.M{
		"name":   c.Name,
		"phone":  c.Phone,
		"isGold": c.IsGold,
	}})
}

func (s *Store) DeleteCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var m customerModel
	if err := s.db.Collection(colCustomers).FindOneAndDelete(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromCustomerModel(&m)
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.db.Collection(colUsers).InsertOne(ctx, toUserModel(u))
	return mapErr(err)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var m userModel
	err := s.db.Collection(colUsers).FindOne(ctx, bson.M{"emailKey": strings.ToLower(email)}).Decode(&m)
	if err != nil {
		return nil, mapErr(err)
	}
	return fromUserModel(&m)
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var m userModel
	if err := s.db.Collection(colUsers).FindOne(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromUserModel(&m)
}

// ==================== Rental Store ====================

func (s *Store) ListRentals(ctx context.Context) ([]model.Rental, error) {
	var models []rentalModel
	if err := s.findAll(ctx, colRentals, &models, bson.D{{Key: "dateOut", Value: -1}}); err != nil {
		return nil, fmt.Errorf("mongo: list rentals: %w", err)
	}
	out := make([]model.Rental, 0, len(models))
	for i := range models {
		r, err := fromRentalModel(&models[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *Store) FindRental(ctx context.Context, id uuid.UUID) (*model.Rental, error) {
	var m rentalModel
	if err := s.db.Collection(colRentals).FindOne(ctx, byID(id)).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromRentalModel(&m)
}

func (s *Store) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, s.db, customerID, movieID)
}

func lookupRental(ctx context.Context, db *mongo.Database, customerID, movieID uuid.UUID) (*model.Rental, error) {
	var m rentalModel
	filter := bson.M{"customer._id": customerID.String(), "movie._id": movieID.String()}
	opts := options.FindOne().SetSort(bson.D{{Key: "dateOut", Value: -1}})
	if err := db.Collection(colRentals).FindOne(ctx, filter, opts).Decode(&m); err != nil {
		return nil, mapErr(err)
	}
	return fromRentalModel(&m)
}

// ==================== Unit of work ====================

// WithinTx runs fn in a multi-document transaction bound to a fresh session.
// Aborts run on a context detached from ctx so a cancelled caller still
// releases the transaction's document locks.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.RentalTx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo: start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	if err := sess.StartTransaction(); err != nil {
		return fmt.Errorf("mongo: start transaction: %w", err)
	}
	sctx := mongo.NewSessionContext(ctx, sess)
	if err := fn(sctx, &rentalTx{db: s.db}); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(sctx))
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(sctx))
		return err
	}
	if err := sess.CommitTransaction(sctx); err != nil {
		_ = sess.AbortTransaction(context.WithoutCancel(sctx))
		return fmt.Errorf("mongo: commit: %w", mapErr(err))
	}
	return nil
}

type rentalTx struct {
	db *mongo.Database
}

// LockMovie bumps the document revision so a concurrent transaction touching
// the same movie fails with a write conflict.
func (t *rentalTx) LockMovie(ctx context.Context, id uuid.UUID) (*model.Movie, error) {
	var m movieModel
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := t.db.Collection(colMovies).
		FindOneAndUpdate(ctx, byID(id), bson.M{"$inc": bson.M{"rev": 1}}, opts).
		Decode(&m)
	if err != nil {
		return nil, mapErr(err)
	}
	return fromMovieModel(&m)
}

func (t *rentalTx) AdjustStock(ctx context.Context, movieID uuid.UUID, delta int) error {
	movies := t.db.Collection(colMovies)
	filter := bson.M{"_id": movieID.String(), "numberInStock": bson.M{"$gte": -delta}}
	res, err := movies.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"numberInStock": delta}})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := movies.CountDocuments(ctx, byID(movieID))
	if err != nil {
		return mapErr(err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrOutOfStock
}

func (t *rentalTx) LookupRental(ctx context.Context, customerID, movieID uuid.UUID) (*model.Rental, error) {
	return lookupRental(ctx, t.db, customerID, movieID)
}

func (t *rentalTx) InsertRental(ctx context.Context, r *model.Rental) error {
	_, err := t.db.Collection(colRentals).InsertOne(ctx, toRentalModel(r))
	return mapErr(err)
}

func (t *rentalTx) CloseRental(ctx context.Context, r *model.Rental) error {
	filter := bson.M{"_id": r.ID.String(), "dateReturned": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"dateReturned": r.DateReturned, "rentalFee": r.RentalFee}}
	res, err := t.db.Collection(colRentals).UpdateOne(ctx, filter, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (t *rentalTx) DeleteRental(ctx context.Context, id uuid.UUID) error {
	res, err := t.db.Collection(colRentals).DeleteOne(ctx, byID(id))
	if err != nil {
		return mapErr(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ==================== Helpers ====================

func byID(id uuid.UUID) bson.M { return bson.M{"_id": id.String()} }

func (s *Store) findAll(ctx context.Context, col string, out any, sort bson.D) error {
	cur, err := s.db.Collection(col).Find(ctx, bson.M{}, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (s *Store) updateOne(ctx context.Context, col string, id uuid.UUID, update bson.M) error {
	res, err := s.db.Collection(col).UpdateOne(ctx, byID(id), update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if isNoDocuments(err) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", repository.ErrDuplicate, err)
	}
	var se mongo.ServerError
	if errors.As(err, &se) && se.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	return err
}
