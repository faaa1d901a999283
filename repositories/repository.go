package repositories

import (
	"context"
	"errors"

	"lorecrafter/models"
)

var (
	// ErrNotFound means no record matched, or the record belongs to another owner.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means a unique constraint (user email) was violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Store is the root handle on the document store.
type Store interface {
	Users() UserRepository
	// World returns a repository that only ever sees records owned by ownerID.
	World(ownerID string) WorldRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// UserRepository defines User-related storage operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// WorldRepository holds the world records of a single owner. Every
// operation filters by that owner; records of other users behave as if
// they did not exist.
type WorldRepository interface {
	OwnerID() string

	CreateCharacter(ctx context.Context, c *models.Character) error
	CreateLocation(ctx context.Context, l *models.Location) error

	Characters(ctx context.Context) ([]models.Character, error)
	Locations(ctx context.Context) ([]models.Location, error)
	// LocationExists reports whether id names a location of this owner.
	LocationExists(ctx context.Context, id string) (bool, error)

	// Delete removes one record of the given kind. Deleting a location
	// also clears location_id on the owner's characters that reference it.
	Delete(ctx context.Context, kind models.Kind, id string) error
	SetColor(ctx context.Context, kind models.Kind, id, color string) error
	LinkLocation(ctx context.Context, characterID, locationID string) error
	SetCoords(ctx context.Context, locationID string, coords models.Coords) error
}
