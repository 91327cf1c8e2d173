package db

import "strings"

// Qualify prefixes every entry of a comma-separated column list with alias,
// for RETURNING clauses that join a CTE.
func Qualify(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = " " + alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ",")
}
