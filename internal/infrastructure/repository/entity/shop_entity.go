package entity

import (
	"time"

	"garagem-shopify-layer/internal/domain"
)

// MongoShopDoc represents an installed shop session in MongoDB.
type MongoShopDoc struct {
	Domain      string    `bson:"domain"`
	AccessToken string    `bson:"accessToken"`
	Scopes      string    `bson:"scopes"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity.
func (d *MongoShopDoc) ToDomain() *domain.ShopSession {
	return &domain.ShopSession{
		Domain:      d.Domain,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document.
func MongoShopDocFromDomain(session *domain.ShopSession) *MongoShopDoc {
	return &MongoShopDoc{
		Domain:      session.Domain,
		AccessToken: session.AccessToken,
		Scopes:      session.Scopes,
		CreatedAt:   session.CreatedAt,
		UpdatedAt:   session.UpdatedAt,
	}
}
