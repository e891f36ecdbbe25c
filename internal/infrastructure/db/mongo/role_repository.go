package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ruby/userauth-service/internal/core/domain"
)

// RoleRepository implements ports.RoleRepository using MongoDB.
type RoleRepository struct {
	coll *mongo.Collection
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{coll: db.Collection(rolesCollection)}
}

type mongoRole struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt int64              `bson:"created_at"`
}

// GetOrCreate upserts the role by name. Two concurrent upserts can race on
// the unique index; the loser re-reads the winner's document.
func (r *RoleRepository) GetOrCreate(ctx context.Context, name string) (*domain.Role, error) {
	filter := bson.M{"name": name}
	update := bson.M{"$setOnInsert": bson.M{
		"name":       name,
		"created_at": time.Now().UTC().Unix(),
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc mongoRole
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = r.coll.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create role %s: %w", name, err)
	}

	return &domain.Role{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		CreatedAt: unixToTime(doc.CreatedAt),
	}, nil
}
