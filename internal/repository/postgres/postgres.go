// Package postgres holds the SQL implementations of the repository
// interfaces. All queries are parameterized; array parameters are passed
// as Postgres array literals so the pgx stdlib driver and test drivers
// handle them uniformly.
package postgres

import "strings"

// pgTextArray renders values as a Postgres text[] literal, e.g. {a,b}.
// Values are plain identifiers (state names), never user input.
func pgTextArray(values []string) string {
	return "{" + strings.Join(values, ",") + "}"
}
