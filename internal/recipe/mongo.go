package recipe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chefshare/internal/apperror"
)

// CollectionName is the Mongo collection holding recipe documents.
const CollectionName = "recipes"

// MongoStore implements Store on a MongoDB collection. Ratings and comments are
// embedded in the recipe document.
type MongoStore struct {
	coll *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

// NewMongoStore returns a store over db.recipes and makes sure its indexes exist.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(CollectionName)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "ingredients", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe indexes: %w", err)
	}
	return &MongoStore{coll: coll}, nil
}

type ratingDoc struct {
	User   primitive.ObjectID `bson:"user"`
	Rating int                `bson:"rating"`
}

type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	User      primitive.ObjectID `bson:"user"`
	Text      string             `bson:"text"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type recipeDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	Author      primitive.ObjectID `bson:"author"`
	ImageURL    string             `bson:"imageUrl"`
	Ingredients []string           `bson:"ingredients"`
	Steps       []string           `bson:"steps"`
	Category    string             `bson:"category"`
	CookingTime string             `bson:"cookingTime,omitempty"`
	Calories    string             `bson:"calories,omitempty"`
	Mood        string             `bson:"mood,omitempty"`
	Ratings     []ratingDoc        `bson:"ratings"`
	Comments    []commentDoc       `bson:"comments"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (d *recipeDoc) recipe() *Recipe {
	r := &Recipe{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Author:      Profile{ID: d.Author.Hex()},
		ImageURL:    d.ImageURL,
		Ingredients: d.Ingredients,
		Steps:       d.Steps,
		Category:    Category(d.Category),
		CookingTime: d.CookingTime,
		Calories:    d.Calories,
		Mood:        d.Mood,
		Ratings:     ratingsFromDocs(d.Ratings),
		Comments:    commentsFromDocs(d.Comments),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Steps == nil {
		r.Steps = []string{}
	}
	return r
}

func ratingsFromDocs(docs []ratingDoc) []Rating {
	out := make([]Rating, 0, len(docs))
	for _, d := range docs {
		out = append(out, Rating{User: d.User.Hex(), Rating: d.Rating})
	}
	return out
}

func commentsFromDocs(docs []commentDoc) []Comment {
	out := make([]Comment, 0, len(docs))
	for _, d := range docs {
		out = append(out, Comment{ID: d.ID.Hex(), User: Profile{ID: d.User.Hex()}, Text: d.Text, CreatedAt: d.CreatedAt})
	}
	return out
}

// objectID parses a hex id. A malformed id cannot name any document.
func objectID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperror.NotFound(what + " not found")
	}
	return oid, nil
}

// substring is a case-insensitive literal substring match.
func substring(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// mongoQuery translates f into a query document. ok is false when the filter
// cannot match anything.
func mongoQuery(f Filter) (q bson.M, ok bool) {
	f = f.Normalize()
	q = bson.M{}
	if f.Author != "" {
		oid, err := primitive.ObjectIDFromHex(f.Author)
		if err != nil {
			return nil, false
		}
		q["author"] = oid
	}
	if f.Search != "" {
		q["title"] = substring(f.Search)
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Ingredient != "" {
		// Matching an array field with a regex tests each element.
		q["ingredients"] = substring(f.Ingredient)
	}
	if f.Mood != "" {
		q["mood"] = f.Mood
	}
	return q, true
}

// Find retrieves recipes matching the filter in natural order.
func (s *MongoStore) Find(ctx context.Context, f Filter) ([]*Recipe, error) {
	q, ok := mongoQuery(f)
	if !ok {
		return []*Recipe{}, nil
	}
	return s.find(ctx, q)
}

// FindByIDs retrieves the recipes with the given ids. Malformed ids are ignored.
func (s *MongoStore) FindByIDs(ctx context.Context, ids []string) ([]*Recipe, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []*Recipe{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

func (s *MongoStore) find(ctx context.Context, q bson.M) ([]*Recipe, error) {
	// ObjectIDs grow with insertion time, so this is oldest first.
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}
	var docs []recipeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode recipes: %w", err)
	}

	recipes := make([]*Recipe, 0, len(docs))
	for i := range docs {
		recipes = append(recipes, docs[i].recipe())
	}
	return recipes, nil
}

// Get retrieves a recipe by id.
func (s *MongoStore) Get(ctx context.Context, id string) (*Recipe, error) {
	oid, err := objectID(id, "Recipe")
	if err != nil {
		return nil, err
	}
	var doc recipeDoc
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("Recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}
	return doc.recipe(), nil
}

// Insert saves a new recipe document.
func (s *MongoStore) Insert(ctx context.Context, r *Recipe) error {
	author, err := objectID(r.Author.ID, "User")
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := recipeDoc{
		ID:          primitive.NewObjectID(),
		Title:       r.Title,
		Description: r.Description,
		Author:      author,
		ImageURL:    r.ImageURL,
		Ingredients: r.Ingredients,
		Steps:       r.Steps,
		Category:    string(r.Category),
		CookingTime: r.CookingTime,
		Calories:    r.Calories,
		Mood:        r.Mood,
		Ratings:     []ratingDoc{},
		Comments:    []commentDoc{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save recipe: %w", err)
	}

	r.ID = doc.ID.Hex()
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// Update saves the editable fields of a recipe.
func (s *MongoStore) Update(ctx context.Context, r *Recipe) error {
	oid, err := objectID(r.ID, "Recipe")
	if err != nil {
		return err
	}

	r.UpdatedAt = time.Now().UTC()
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       r.Title,
		"description": r.Description,
		"imageUrl":    r.ImageURL,
		"ingredients": r.Ingredients,
		"steps":       r.Steps,
		"category":    string(r.Category),
		"cookingTime": r.CookingTime,
		"calories":    r.Calories,
		"mood":        r.Mood,
		"updatedAt":   r.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("failed to update recipe: %w", err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("Recipe not found")
	}
	return nil
}

// Delete removes a recipe document.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id, "Recipe")
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("Recipe not found")
	}
	return nil
}

// maxRatingAttempts bounds the set/push race between two first-time raters
// sharing a user id.
const maxRatingAttempts = 3

// UpsertRating overwrites the user's rating with a positional $set, or appends
// it with a $push guarded by the user being absent. Each step is atomic on the
// document, so concurrent raters never lose each other's entries.
func (s *MongoStore) UpsertRating(ctx context.Context, recipeID string, rt Rating) ([]Rating, error) {
	oid, err := objectID(recipeID, "Recipe")
	if err != nil {
		return nil, err
	}
	user, err := objectID(rt.User, "User")
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"ratings": 1})

	for attempt := 0; attempt < maxRatingAttempts; attempt++ {
		var doc recipeDoc
		err := s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "ratings.user": user},
			bson.M{"$set": bson.M{"ratings.$.rating": rt.Rating, "updatedAt": now}},
			opts,
		).Decode(&doc)
		if err == nil {
			return ratingsFromDocs(doc.Ratings), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to update rating: %w", err)
		}

		err = s.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": oid, "ratings.user": bson.M{"$ne": user}},
			bson.M{
				"$push": bson.M{"ratings": ratingDoc{User: user, Rating: rt.Rating}},
				"$set":  bson.M{"updatedAt": now},
			},
			opts,
		).Decode(&doc)
		if err == nil {
			return ratingsFromDocs(doc.Ratings), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to add rating: %w", err)
		}

		// Neither matched: the recipe is gone, or another request pushed this
		// user's rating in between and the next $set will hit it.
		n, err := s.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return nil, fmt.Errorf("failed to get recipe: %w", err)
		}
		if n == 0 {
			return nil, apperror.NotFound("Recipe not found")
		}
	}
	return nil, fmt.Errorf("failed to save rating after %d attempts", maxRatingAttempts)
}

// AddComment appends a comment with $push.
func (s *MongoStore) AddComment(ctx context.Context, recipeID string, c Comment) ([]Comment, error) {
	oid, err := objectID(recipeID, "Recipe")
	if err != nil {
		return nil, err
	}
	user, err := objectID(c.User.ID, "User")
	if err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"comments": 1})

	var doc recipeDoc
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": commentDoc{
			ID:        primitive.NewObjectID(),
			User:      user,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		}}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("Recipe not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}
	return commentsFromDocs(doc.Comments), nil
}

// CountByAuthor groups recipes by author with an aggregation.
func (s *MongoStore) CountByAuthor(ctx context.Context) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"author": bson.M{"$ne": nil}}}},
		{{Key: "$group", Value: bson.M{"_id": "$author", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipes: %w", err)
	}
	var rows []struct {
		Author primitive.ObjectID `bson:"_id"`
		Count  int                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode recipe counts: %w", err)
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Author.Hex()] = row.Count
	}
	return counts, nil
}
