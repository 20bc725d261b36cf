// Package gateway fetches raw content collections for the dashboard.
package gateway

import (
	"context"

	"github.com/lysyi3m/folio-pulse/app/content"
)

// Gateway returns the raw records of one content collection.
type Gateway interface {
	Fetch(ctx context.Context, kind content.Kind) ([]content.Record, error)
}

// TokenSource supplies the bearer token for authenticated requests. An
// empty token means the request is sent without credentials.
type TokenSource interface {
	Token() string
}

type StaticToken string

func (t StaticToken) Token() string {
	return string(t)
}
