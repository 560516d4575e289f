package interfaces

import (
	"context"

	"github.com/mstrack/mstrack/internal/models"
)

// CredentialSource resolves an alias to usable portal credentials. Records
// with any field failing decryption are excluded; partial credential sets
// are never returned.
type CredentialSource interface {
	MatchesForAlias(ctx context.Context, alias string) ([]models.PortalCredential, error)
}
