package domain

import "time"

// StateTTL bounds how long a pending install handshake stays valid.
// Abandoned installs expire instead of leaking state records.
const StateTTL = 10 * time.Minute

// OAuthState represents one pending installation handshake. The state nonce
// is consumed at most once; the record is deleted on consumption.
type OAuthState struct {
	State     string    `json:"state"`
	Shop      string    `json:"shop"`
	CreatedAt time.Time `json:"created_at"`
}
