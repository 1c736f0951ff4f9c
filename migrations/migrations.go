// Package migrations embeds the SQL schema files applied by cmd/migrate.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Schema returns the schema migration for direction "up" or "down".
func Schema(direction string) (name string, sql string, err error) {
	switch direction {
	case "up", "down":
	default:
		return "", "", fmt.Errorf("unknown migration direction %q (want up or down)", direction)
	}

	name = "001_create_schema." + direction + ".sql"
	b, err := files.ReadFile(name)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", name, err)
	}
	return name, string(b), nil
}
