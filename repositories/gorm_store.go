package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lorecrafter/models"

	"gorm.io/gorm"
)

// --- Table records ---

type userRecord struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type characterRecord struct {
	ID                  uint   `gorm:"primaryKey"`
	OwnerID             uint   `gorm:"index;not null"`
	Name                string `gorm:"size:255;not null"`
	Role                string `gorm:"size:255"`
	PhysicalDescription string `gorm:"type:text"`
	PersonalityTraits   string `gorm:"type:text"`
	Backstory           string `gorm:"type:text"`
	Color               string `gorm:"size:32"`
	LocationID          *uint  `gorm:"index"`
	CreatedAt           time.Time
}

func (characterRecord) TableName() string { return "characters" }

type locationRecord struct {
	ID          uint   `gorm:"primaryKey"`
	OwnerID     uint   `gorm:"index;not null"`
	Name        string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Color       string `gorm:"size:32"`
	X           *float64
	Y           *float64
	CreatedAt   time.Time
}

func (locationRecord) TableName() string { return "locations" }

// AutoMigrate creates or updates the tables used by the gorm store.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&userRecord{}, &characterRecord{}, &locationRecord{})
}

// --- id conversion ---

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// --- Store ---

type gormStore struct {
	db *gorm.DB
}

var _ Store = (*gormStore)(nil)

// NewGormStore wraps an open gorm connection. Tables must already be migrated.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Users() UserRepository {
	return &gormUserRepository{db: s.db}
}

func (s *gormStore) World(ownerID string) WorldRepository {
	// An unparsable owner can own nothing; id 0 never matches a row.
	owner, _ := parseID(ownerID)
	return &gormWorldRepository{db: s.db, owner: owner}
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *gormStore) Close(_ context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --- Users ---

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	rec := userRecord{
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = formatID(rec.ID)
	return nil
}

func (r *gormUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	uid, ok := parseID(id)
	if !ok {
		return nil, ErrNotFound
	}
	var rec userRecord
	if err := r.db.WithContext(ctx).First(&rec, uid).Error; err != nil {
		return nil, translateGormError(err)
	}
	return rec.toModel(), nil
}

func (r *gormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var rec userRecord
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&rec).Error; err != nil {
		return nil, translateGormError(err)
	}
	return rec.toModel(), nil
}

func (rec *userRecord) toModel() *models.User {
	return &models.User{
		ID:           formatID(rec.ID),
		Username:     rec.Username,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		CreatedAt:    rec.CreatedAt,
	}
}

// --- World ---

type gormWorldRepository struct {
	db    *gorm.DB
	owner uint
}

var _ WorldRepository = (*gormWorldRepository)(nil)

func (r *gormWorldRepository) OwnerID() string { return formatID(r.owner) }

// scoped narrows a query on the given table record to this owner's rows.
func (r *gormWorldRepository) scoped(ctx context.Context, model any) *gorm.DB {
	return r.db.WithContext(ctx).Model(model).Where("owner_id = ?", r.owner)
}

func (r *gormWorldRepository) CreateCharacter(ctx context.Context, c *models.Character) error {
	rec := characterRecord{
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
		lid, ok := parseID(c.LocationID)
		if !ok {
			return ErrNotFound
		}
		rec.LocationID = &lid
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	c.ID = formatID(rec.ID)
	c.OwnerID = formatID(r.owner)
	return nil
}

func (r *gormWorldRepository) CreateLocation(ctx context.Context, l *models.Location) error {
	rec := locationRecord{
		OwnerID:     r.owner,
		Name:        l.Name,
		Description: l.Description,
		Color:       l.Color,
		CreatedAt:   l.CreatedAt,
	}
	if l.Coords != nil {
		rec.X, rec.Y = &l.Coords.X, &l.Coords.Y
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert location: %w", err)
	}
	l.ID = formatID(rec.ID)
	l.OwnerID = formatID(r.owner)
	return nil
}

func (r *gormWorldRepository) Characters(ctx context.Context) ([]models.Character, error) {
	var recs []characterRecord
	if err := r.scoped(ctx, &characterRecord{}).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find characters: %w", err)
	}
	out := make([]models.Character, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (r *gormWorldRepository) Locations(ctx context.Context) ([]models.Location, error) {
	var recs []locationRecord
	if err := r.scoped(ctx, &locationRecord{}).Order("id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	out := make([]models.Location, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (r *gormWorldRepository) LocationExists(ctx context.Context, id string) (bool, error) {
	lid, ok := parseID(id)
	if !ok {
		return false, nil
	}
	return r.exists(ctx, &locationRecord{}, lid)
}

func (r *gormWorldRepository) exists(ctx context.Context, model any, id uint) (bool, error) {
	var count int64
	if err := r.scoped(ctx, model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count records: %w", err)
	}
	return count > 0, nil
}

func (r *gormWorldRepository) Delete(ctx context.Context, kind models.Kind, id string) error {
	rid, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	switch kind {
	case models.KindCharacter:
		res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", rid, r.owner).Delete(&characterRecord{})
		if res.Error != nil {
			return fmt.Errorf("delete character: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	case models.KindLocation:
		// The location and the references to it go away together.
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Where("id = ? AND owner_id = ?", rid, r.owner).Delete(&locationRecord{})
			if res.Error != nil {
				return fmt.Errorf("delete location: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotFound
			}
			err := tx.Model(&characterRecord{}).
				Where("owner_id = ? AND location_id = ?", r.owner, rid).
				Update("location_id", nil).Error
			if err != nil {
				return fmt.Errorf("unlink characters: %w", err)
			}
			return nil
		})
	}
	return fmt.Errorf("delete: invalid kind %d", int(kind))
}

func (r *gormWorldRepository) SetColor(ctx context.Context, kind models.Kind, id, color string) error {
	var model any
	switch kind {
	case models.KindCharacter:
		model = &characterRecord{}
	case models.KindLocation:
		model = &locationRecord{}
	default:
		return fmt.Errorf("set color: invalid kind %d", int(kind))
	}
	return r.updateOwned(ctx, model, id, map[string]any{"color": color})
}

func (r *gormWorldRepository) LinkLocation(ctx context.Context, characterID, locationID string) error {
	lid, ok := parseID(locationID)
	if !ok {
		return ErrNotFound
	}
	return r.updateOwned(ctx, &characterRecord{}, characterID, map[string]any{"location_id": lid})
}

func (r *gormWorldRepository) SetCoords(ctx context.Context, locationID string, coords models.Coords) error {
	return r.updateOwned(ctx, &locationRecord{}, locationID, map[string]any{"x": coords.X, "y": coords.Y})
}

// updateOwned applies fields to one owned row. Existence is checked first
// because MySQL reports zero affected rows when the values are unchanged.
func (r *gormWorldRepository) updateOwned(ctx context.Context, model any, id string, fields map[string]any) error {
	rid, ok := parseID(id)
	if !ok {
		return ErrNotFound
	}
	found, err := r.exists(ctx, model, rid)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if err := r.scoped(ctx, model).Where("id = ?", rid).Updates(fields).Error; err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func (rec *characterRecord) toModel() models.Character {
	c := models.Character{
		ID:                  formatID(rec.ID),
		Name:                rec.Name,
		Role:                rec.Role,
		PhysicalDescription: rec.PhysicalDescription,
		PersonalityTraits:   rec.PersonalityTraits,
		Backstory:           rec.Backstory,
		Color:               rec.Color,
		CreatedAt:           rec.CreatedAt,
		OwnerID:             formatID(rec.OwnerID),
	}
	if rec.LocationID != nil {
		c.LocationID = formatID(*rec.LocationID)
	}
	return c
}

func (rec *locationRecord) toModel() models.Location {
	l := models.Location{
		ID:          formatID(rec.ID),
		Name:        rec.Name,
		Description: rec.Description,
		Color:       rec.Color,
		CreatedAt:   rec.CreatedAt,
		OwnerID:     formatID(rec.OwnerID),
	}
	if rec.X != nil && rec.Y != nil {
		l.Coords = &models.Coords{X: *rec.X, Y: *rec.Y}
	}
	return l
}

func translateGormError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
