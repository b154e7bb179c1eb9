package repository

import (
	"context"
	"fmt"
	"time"

	"garagem-shopify-layer/internal/domain"
	"garagem-shopify-layer/internal/infrastructure/repository/entity"
	"garagem-shopify-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShopRepository implements ShopRepository using MongoDB.
type MongoShopRepository struct {
	collection *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository.
func NewMongoShopRepository(db *mongo.Database) ports.ShopRepository {
	return &MongoShopRepository{
		collection: db.Collection("shop_sessions"),
	}
}

// SaveShop creates or replaces the session for a shop domain.
func (r *MongoShopRepository) SaveShop(ctx context.Context, session *domain.ShopSession) error {
	doc := entity.MongoShopDocFromDomain(session)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": session.Domain}
	update := bson.M{"$set": doc}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop session: %w", err)
	}

	return nil
}

// GetShop retrieves the session for a shop domain, or nil when the shop is
// not installed.
func (r *MongoShopRepository) GetShop(ctx context.Context, shopDomain string) (*domain.ShopSession, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"domain": shopDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop session: %w", err)
	}

	return doc.ToDomain(), nil
}

// DeleteShop removes the session for a shop domain.
func (r *MongoShopRepository) DeleteShop(ctx context.Context, shopDomain string) error {
	filter := bson.M{"domain": shopDomain}

	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete shop session: %w", err)
	}

	return nil
}
