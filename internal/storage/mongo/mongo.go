// Package mongo stores profiles in a MongoDB "profiles" collection, one
// document per account.
package mongo

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/onboarding"
	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/storage"
)

const (
	profilesCollection = "profiles"
	defaultDBName      = "biotree"
)

type Store struct {
	client   *mongodriver.Client
	db       *mongodriver.Database
	profiles *mongodriver.Collection
	now      func() time.Time
}

// New connects, pings and makes sure the indexes exist. Atlas-style
// mongodb+srv URIs are dialled over TLS 1.2.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo: empty uri")
	}
	if database == "" {
		database = defaultDBName
	}

	opts := options.Client().ApplyURI(uri)
	if strings.HasPrefix(uri, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	cli, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(database)
	s := &Store{
		client:   cli,
		db:       db,
		profiles: db.Collection(profilesCollection),
		now:      time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ensureIndexes:
// - account_id is the document key
// - username is unique among documents that have one; this is what closes the
//   check-then-write race between two accounts claiming the same name
func (s *Store) ensureIndexes(ctx context.Context) error {
	idx := []mongodriver.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetName("account_id_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().
				SetName("username_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"username": bson.M{"$gt": ""}}),
		},
	}
	if _, err := s.profiles.Indexes().CreateMany(ctx, idx); err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) GetProfile(ctx context.Context, accountID string) (*models.Profile, error) {
	const op = "storage.mongo.GetProfile"
	return s.findOne(ctx, op, bson.M{"account_id": accountID})
}

func (s *Store) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	const op = "storage.mongo.GetProfileByUsername"
	if username == "" {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return s.findOne(ctx, op, bson.M{"username": username})
}

func (s *Store) findOne(ctx context.Context, op string, filter bson.M) (*models.Profile, error) {
	var p models.Profile
	if err := s.profiles.FindOne(ctx, filter).Decode(&p); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}
		return nil, storage.Unavailable(op, err)
	}
	return &p, nil
}

// UpsertProfileFields translates the partial update into one $set, with the
// identity key and creation time in $setOnInsert. A path may not appear in
// both, so nothing the caller can set is ever seeded on insert.
func (s *Store) UpsertProfileFields(ctx context.Context, accountID string, fields models.ProfileFields) (*models.Profile, error) {
	const op = "storage.mongo.UpsertProfileFields"

	now := s.now().UTC()
	set := setDoc(fields)
	set["updated_at"] = now
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"account_id": accountID,
			"created_at": now,
			"views":      int64(0),
		},
	}

	p, err := s.upsert(ctx, accountID, update)
	if err != nil && mongodriver.IsDuplicateKeyError(err) && !isUsernameConflict(err) {
		// two first writes for the same account raced on insert; the loser
		// retries as a plain update
		p, err = s.upsert(ctx, accountID, update)
	}
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) && isUsernameConflict(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUsernameTaken)
		}
		return nil, storage.Unavailable(op, err)
	}

	// profile_complete is a cache of the evaluator; keep it in step
	if complete := onboarding.IsComplete(p); complete != p.ProfileComplete {
		_, err := s.profiles.UpdateOne(ctx, bson.M{"account_id": accountID},
			bson.M{"$set": bson.M{"profile_complete": complete}})
		if err != nil {
			return nil, storage.Unavailable(op, err)
		}
		p.ProfileComplete = complete
	}
	return p, nil
}

func (s *Store) upsert(ctx context.Context, accountID string, update bson.M) (*models.Profile, error) {
	var p models.Profile
	err := s.profiles.FindOneAndUpdate(ctx,
		bson.M{"account_id": accountID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func setDoc(f models.ProfileFields) bson.M {
	set := bson.M{}
	if f.Username != nil {
		set["username"] = *f.Username
	}
	if f.DisplayName != nil {
		set["display_name"] = *f.DisplayName
	}
	if f.PhotoURL != nil {
		set["photo_url"] = *f.PhotoURL
	}
	if f.Email != nil {
		set["email"] = *f.Email
	}
	if f.Bio != nil {
		set["bio"] = *f.Bio
	}
	if f.BioLinks != nil {
		links := *f.BioLinks
		if links == nil {
			links = []models.BioLink{}
		}
		set["bio_links"] = links
	}
	if f.Theme != nil {
		set["theme"] = *f.Theme
	}
	if f.ThemeConfig != nil {
		set["theme_config"] = *f.ThemeConfig
	}
	if f.ThemeOverrides != nil {
		set["theme_overrides"] = *f.ThemeOverrides
	}
	if f.LastLoginAt != nil {
		set["last_login_at"] = f.LastLoginAt.UTC()
	}
	return set
}

func isUsernameConflict(err error) bool {
	return strings.Contains(err.Error(), "username")
}

func (s *Store) IsUsernameTaken(ctx context.Context, candidate string) (bool, error) {
	const op = "storage.mongo.IsUsernameTaken"
	if candidate == "" {
		return false, nil
	}
	n, err := s.profiles.CountDocuments(ctx, bson.M{"username": candidate}, options.Count().SetLimit(1))
	if err != nil {
		return false, storage.Unavailable(op, err)
	}
	return n > 0, nil
}

func (s *Store) IncrementViewCounter(ctx context.Context, accountID string) error {
	const op = "storage.mongo.IncrementViewCounter"
	res, err := s.profiles.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$inc": bson.M{"views": 1}},
	)
	if err != nil {
		return storage.Unavailable(op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	return nil
}

var _ storage.Repository = (*Store)(nil)
