package oauth

import (
	"context"
	"time"
)

// Store defines persistence for clients, grants and authorization codes.
// Lookups return nil, nil when the record does not exist.
type Store interface {
	// SaveClient stores a client registration
	SaveClient(ctx context.Context, client *Client) error

	// GetClient retrieves a client by id
	GetClient(ctx context.Context, clientID string) (*Client, error)

	// SaveGrant stores a grant for ttl
	SaveGrant(ctx context.Context, grant *Grant, ttl time.Duration) error

	// GetGrant retrieves a grant by id
	GetGrant(ctx context.Context, grantID string) (*Grant, error)

	// SaveAuthCode stores an authorization code for ttl
	SaveAuthCode(ctx context.Context, code *AuthCode, ttl time.Duration) error

	// ConsumeAuthCode retrieves and deletes an authorization code issued to
	// clientID atomically. Codes issued to other clients are left untouched.
	ConsumeAuthCode(ctx context.Context, clientID, code string) (*AuthCode, error)

	// CheckHealth verifies the storage backend is healthy
	CheckHealth(ctx context.Context) error
}
