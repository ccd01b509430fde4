package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

// Default role catalog. The admin role carries no rows: it bypasses
// permission checks entirely.
var defaultRolePermissions = map[string][]string{
	"manager": {
		"customer:*",
		"appointment:*",
		"project:*",
		"service:view",
		"notification:send",
	},
	"staff": {
		"customer:view",
		"appointment:view",
		"appointment:edit",
		"project:view",
		"service:view",
	},
	"user": {
		"appointment:view",
		"profile:edit",
	},
}

func init() {
	m.Register(func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("role_permissions")
		if err != nil {
			return err
		}

		for role, permissions := range defaultRolePermissions {
			for _, permission := range permissions {
				record := core.NewRecord(collection)
				record.Set("role", role)
				record.Set("permission", permission)
				if err := app.Save(record); err != nil {
					return err
				}
			}
		}
		return nil
	}, func(app core.App) error {
		records, err := app.FindAllRecords("role_permissions")
		if err != nil {
			return nil
		}
		for _, record := range records {
			if err := app.Delete(record); err != nil {
				return err
			}
		}
		return nil
	})
}
