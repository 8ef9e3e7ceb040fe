package tokenstore

import (
	"context"

	"github.com/yogamaster/yoga-client/internal/models"
)

// Store holds the single server-issued bearer token for this client.
// Get returns (nil, nil) when no token is stored. Mutations must be
// visible to the very next Get; none of the backends cache reads.
type Store interface {
	Get(ctx context.Context) (*models.Token, error)
	Set(ctx context.Context, token *models.Token) error
	Clear(ctx context.Context) error
}
