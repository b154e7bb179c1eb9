package domain

import "time"

// ShopSession represents one installed shop. There is at most one live
// session per shop domain; writes are upserts.
type ShopSession struct {
	Domain      string    `json:"domain"`
	AccessToken string    `json:"-"`
	Scopes      string    `json:"scopes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
