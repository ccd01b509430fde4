// Package migrations contains PocketBase migrations for the auth core's
// collections.
package migrations

import (
	_ "embed"

	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

//go:embed collections_auth.json
var authCollectionsSnapshot []byte

func init() {
	m.Register(func(app core.App) error {
		// Import users, role_permissions, user_permissions and
		// blacklisted_tokens collections.
		return app.ImportCollectionsByMarshaledJSON(authCollectionsSnapshot, false)
	}, nil)
}
