package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lorecrafter/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// --- Documents ---

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type characterDocument struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty"`
	OwnerID             primitive.ObjectID  `bson:"owner_id"`
	Name                string              `bson:"name"`
	Role                string              `bson:"role"`
	PhysicalDescription string              `bson:"physical_description"`
	PersonalityTraits   string              `bson:"personality_traits"`
	Backstory           string              `bson:"backstory"`
	Color               string              `bson:"color"`
	LocationID          *primitive.ObjectID `bson:"location_id,omitempty"`
	CreatedAt           time.Time           `bson:"created_at"`
}

type coordsDocument struct {
	X float64 `bson:"x"`
	Y float64 `bson:"y"`
}

type locationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OwnerID     primitive.ObjectID `bson:"owner_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Color       string             `bson:"color"`
	Coords      *coordsDocument    `bson:"coords"`
	CreatedAt   time.Time          `bson:"created_at"`
}

// EnsureMongoIndexes creates the unique email index and the owner indexes.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users email index: %w", err)
	}
	for _, kind := range models.Kinds {
		_, err := db.Collection(kind.Collection()).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "owner_id", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("create %s owner index: %w", kind.Collection(), err)
		}
	}
	return nil
}

// --- Store ---

type mongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ Store = (*mongoStore)(nil)

// NewMongoStore wraps a connected client and the database holding the collections.
func NewMongoStore(client *mongo.Client, db *mongo.Database) Store {
	return &mongoStore{client: client, db: db}
}

func (s *mongoStore) Users() UserRepository {
	return &mongoUserRepository{users: s.db.Collection("users")}
}

func (s *mongoStore) World(ownerID string) WorldRepository {
	// An invalid hex id becomes NilObjectID, which no document carries.
	owner, _ := primitive.ObjectIDFromHex(ownerID)
	return &mongoWorldRepository{
		characters: s.db.Collection(models.KindCharacter.Collection()),
		locations:  s.db.Collection(models.KindLocation.Collection()),
		owner:      owner,
	}
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// --- Users ---

type mongoUserRepository struct {
	users *mongo.Collection
}

func (r *mongoUserRepository) Create(ctx context.Context, user *models.User) error {
	doc := userDocument{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	res, err := r.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = insertedHex(res)
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDocument
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &models.User{
		ID:           doc.ID.Hex(),
		Username:     doc.Username,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

// --- World ---

type mongoWorldRepository struct {
	characters *mongo.Collection
	locations  *mongo.Collection
	owner      primitive.ObjectID
}

var _ WorldRepository = (*mongoWorldRepository)(nil)

func (r *mongoWorldRepository) OwnerID() string { return r.owner.Hex() }

func (r *mongoWorldRepository) collection(kind models.Kind) *mongo.Collection {
	switch kind {
	case models.KindCharacter:
		return r.characters
	case models.KindLocation:
		return r.locations
	}
	panic(fmt.Sprintf("repositories: invalid kind %d", int(kind)))
}

// ownedFilter matches the document with the given hex id iff this owner holds it.
func (r *mongoWorldRepository) ownedFilter(id string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "owner_id": r.owner}, true
}

func (r *mongoWorldRepository) CreateCharacter(ctx context.Context, c *models.Character) error {
	doc := characterDocument{
		OwnerID:             r.owner,
		Name:                c.Name,
		Role:                c.Role,
		PhysicalDescription: c.PhysicalDescription,
		PersonalityTraits:   c.PersonalityTraits,
		Backstory:           c.Backstory,
		Color:               c.Color,
		CreatedAt:           c.CreatedAt,
	}
	if c.LocationID != "" {
		lid, err := primitive.ObjectIDFromHex(c.LocationID)
		if err != nil {
			return ErrNotFound
		}
		doc.LocationID = &lid
	}
	res, err := r.characters.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	c.ID = insertedHex(res)
	c.OwnerID = r.owner.Hex()
	return nil
}

func (r *mongoWorldRepository) CreateLocation(ctx context.Context, l *models.Location) error {
	doc := locationDocument{
		OwnerID:     r.owner,
		Name:        l.Name,
		Description: l.Description,
		Color:       l.Color,
		CreatedAt:   l.CreatedAt,
	}
	if l.Coords != nil {
		doc.Coords = &coordsDocument{X: l.Coords.X, Y: l.Coords.Y}
	}
	res, err := r.locations.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	l.ID = insertedHex(res)
	l.OwnerID = r.owner.Hex()
	return nil
}

func (r *mongoWorldRepository) Characters(ctx context.Context) ([]models.Character, error) {
	var docs []characterDocument
	if err := r.findOwned(ctx, r.characters, &docs); err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}
	out := make([]models.Character, 0, len(docs))
	for _, doc := range docs {
		c := models.Character{
			ID:                  doc.ID.Hex(),
			Name:                doc.Name,
			Role:                doc.Role,
			PhysicalDescription: doc.PhysicalDescription,
			PersonalityTraits:   doc.PersonalityTraits,
			Backstory:           doc.Backstory,
			Color:               doc.Color,
			CreatedAt:           doc.CreatedAt,
			OwnerID:             doc.OwnerID.Hex(),
		}
		if doc.LocationID != nil {
			c.LocationID = doc.LocationID.Hex()
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *mongoWorldRepository) Locations(ctx context.Context) ([]models.Location, error) {
	var docs []locationDocument
	if err := r.findOwned(ctx, r.locations, &docs); err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	out := make([]models.Location, 0, len(docs))
	for _, doc := range docs {
		l := models.Location{
			ID:          doc.ID.Hex(),
			Name:        doc.Name,
			Description: doc.Description,
			Color:       doc.Color,
			CreatedAt:   doc.CreatedAt,
			OwnerID:     doc.OwnerID.Hex(),
		}
		if doc.Coords != nil {
			l.Coords = &models.Coords{X: doc.Coords.X, Y: doc.Coords.Y}
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *mongoWorldRepository) findOwned(ctx context.Context, coll *mongo.Collection, out any) error {
	cur, err := coll.Find(ctx, bson.M{"owner_id": r.owner}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

func (r *mongoWorldRepository) LocationExists(ctx context.Context, id string) (bool, error) {
	filter, ok := r.ownedFilter(id)
	if !ok {
		return false, nil
	}
	n, err := r.locations.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count locations: %w", err)
	}
	return n > 0, nil
}

func (r *mongoWorldRepository) Delete(ctx context.Context, kind models.Kind, id string) error {
	filter, ok := r.ownedFilter(id)
	if !ok {
		return ErrNotFound
	}
	res, err := r.collection(kind).DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	if kind != models.KindLocation {
		return nil
	}
	// Second, independent write: a crash here leaves characters pointing at
	// a missing location until they are relinked.
	_, err = r.characters.UpdateMany(ctx,
		bson.M{"owner_id": r.owner, "location_id": filter["_id"]},
		bson.M{"$unset": bson.M{"location_id": ""}},
	)
	if err != nil {
		return fmt.Errorf("unlink characters: %w", err)
	}
	return nil
}

func (r *mongoWorldRepository) SetColor(ctx context.Context, kind models.Kind, id, color string) error {
	return r.updateOwned(ctx, r.collection(kind), id, bson.M{"color": color})
}

func (r *mongoWorldRepository) LinkLocation(ctx context.Context, characterID, locationID string) error {
	lid, err := primitive.ObjectIDFromHex(locationID)
	if err != nil {
		return ErrNotFound
	}
	return r.updateOwned(ctx, r.characters, characterID, bson.M{"location_id": lid})
}

func (r *mongoWorldRepository) SetCoords(ctx context.Context, locationID string, coords models.Coords) error {
	return r.updateOwned(ctx, r.locations, locationID, bson.M{"coords": coordsDocument{X: coords.X, Y: coords.Y}})
}

func (r *mongoWorldRepository) updateOwned(ctx context.Context, coll *mongo.Collection, id string, set bson.M) error {
	filter, ok := r.ownedFilter(id)
	if !ok {
		return ErrNotFound
	}
	res, err := coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func insertedHex(res *mongo.InsertOneResult) string {
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprint(res.InsertedID)
}
