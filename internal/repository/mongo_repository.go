package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kallkeyy/storefront-api/internal/domain"
)

// Collection names used by the storefront backend.
const (
	UsersCollection  = "users"
	AdminsCollection = "admins"
)

// credentialProjection drops secret fields from every identity lookup.
var credentialProjection = bson.D{
	{Key: "password", Value: 0},
	{Key: "resetPasswordToken", Value: 0},
	{Key: "resetPasswordExpires", Value: 0},
}

type userDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

type adminDocument struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Role      string             `bson:"role"`
	Active    *bool              `bson:"isActive"`
	LastLogin time.Time          `bson:"lastLogin,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type mongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository returns a MongoDB-backed user repository.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{collection: db.Collection(UsersCollection)}
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var doc userDocument
	if err := findByHexID(ctx, r.collection, id, &doc); err != nil {
		return nil, err
	}
	return &domain.User{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

type mongoAdminRepository struct {
	collection *mongo.Collection
}

// NewMongoAdminRepository returns a MongoDB-backed admin repository.
func NewMongoAdminRepository(db *mongo.Database) AdminRepository {
	return &mongoAdminRepository{collection: db.Collection(AdminsCollection)}
}

func (r *mongoAdminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	var doc adminDocument
	if err := findByHexID(ctx, r.collection, id, &doc); err != nil {
		return nil, err
	}
	return &domain.Admin{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		Role:      domain.AdminRole(doc.Role),
		Active:    doc.Active == nil || *doc.Active,
		LastLogin: doc.LastLogin,
		CreatedAt: doc.CreatedAt,
	}, nil
}

// findByHexID decodes the document with the given ObjectID hex. A malformed id
// cannot match any record and is reported as ErrNotFound.
func findByHexID(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	opts := options.FindOne().SetProjection(credentialProjection)
	if err := coll.FindOne(ctx, bson.M{"_id": objectID}, opts).Decode(out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return fmt.Errorf("find %s %s: %w", coll.Name(), id, err)
	}
	return nil
}
