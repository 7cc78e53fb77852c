// Package sqlutil provides Postgres quoting helpers.
package sqlutil

import "strings"

// QuoteIdentifier quotes a Postgres identifier (schema, view or column name)
// with double quotes, doubling any embedded double quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedName returns schema.relation with both parts quoted. An empty
// schema yields just the quoted relation, resolved through search_path.
func QualifiedName(schema, relation string) string {
	if schema == "" {
		return QuoteIdentifier(relation)
	}
	return QuoteIdentifier(schema) + "." + QuoteIdentifier(relation)
}

// QuoteConnValue quotes a value for a libpq key=value connection string.
// Backslashes and single quotes are escaped with a backslash.
func QuoteConnValue(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `'`, `\'`)
	return "'" + escaped + "'"
}
