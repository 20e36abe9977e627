package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chefshare/internal/apperror"
)

// CollectionName is the Mongo collection holding user documents.
const CollectionName = "users"

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore returns a store over db.users with a unique email index.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(CollectionName)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user indexes: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	Password     string               `bson:"password"`
	Bio          string               `bson:"bio,omitempty"`
	AvatarURL    string               `bson:"avatarUrl,omitempty"`
	SavedRecipes []primitive.ObjectID `bson:"savedRecipes"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

func (d *userDoc) user() *User {
	return &User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.Password,
		Bio:          d.Bio,
		AvatarURL:    d.AvatarURL,
		SavedRecipes: hexes(d.SavedRecipes),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func hexes(oids []primitive.ObjectID) []string {
	out := make([]string, 0, len(oids))
	for _, oid := range oids {
		out = append(out, oid.Hex())
	}
	return out
}

func userID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound("User not found")
	}
	return oid, nil
}

// Create inserts a new user document.
func (s *MongoStore) Create(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Username:     u.Username,
		Email:        u.Email,
		Password:     u.PasswordHash,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		SavedRecipes: []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	_, err := s.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return apperror.Validation("User already exists")
	}
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	u.ID = doc.ID.Hex()
	u.SavedRecipes = []string{}
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// FindByEmail retrieves a user by email.
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// Get retrieves a user by id.
func (s *MongoStore) Get(ctx context.Context, id string) (*User, error) {
	oid, err := userID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findOne(ctx context.Context, q bson.M) (*User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, q).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return doc.user(), nil
}

// FindByIDs retrieves the users with the given ids.
func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*User{}, nil
	}

	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(bson.M{"password": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]*User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].user())
	}
	return users, nil
}

// Update saves the editable profile fields.
func (s *MongoStore) Update(ctx context.Context, u *User) error {
	oid, err := userID(u.ID)
	if err != nil {
		return err
	}

	u.UpdatedAt = time.Now().UTC()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"username":  u.Username,
		"password":  u.PasswordHash,
		"bio":       u.Bio,
		"avatarUrl": u.AvatarURL,
		"updatedAt": u.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("User not found")
	}
	return nil
}

// ToggleSaved pulls recipeID when the list holds it and adds it otherwise.
// Both updates are conditional on the current membership, so two concurrent
// toggles resolve to one add and one remove.
func (s *MongoStore) ToggleSaved(ctx context.Context, id, recipeID string) ([]string, bool, error) {
	oid, err := userID(id)
	if err != nil {
		return nil, false, err
	}
	rid, err := primitive.ObjectIDFromHex(recipeID)
	if err != nil {
		return nil, false, apperror.NotFound("Recipe not found")
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"savedRecipes": 1})

	var doc userDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "savedRecipes": rid},
		bson.M{"$pull": bson.M{"savedRecipes": rid}},
		opts,
	).Decode(&doc)
	if err == nil {
		return hexes(doc.SavedRecipes), false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("failed to update saved recipes: %w", err)
	}

	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"savedRecipes": rid}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, apperror.NotFound("User not found")
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to update saved recipes: %w", err)
	}
	return hexes(doc.SavedRecipes), true, nil
}
