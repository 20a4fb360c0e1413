package types

import "strings"

// Reserved table names in a persisted snapshot.
const (
	SchemaTable = "_schema"
	FieldsTable = "_fields"
	MetaTable   = "_meta"
)

// RetiredPrefix prefixes the table that holds the retired records of an
// entity type.
const RetiredPrefix = "Retired:"

// ReservedTableNames lists the tables that never hold entity records.
var ReservedTableNames = []string{
	SchemaTable,
	FieldsTable,
	MetaTable,
}

// TableName returns the table holding the active or retired records of
// entityType.
func TableName(entityType string, retired bool) string {
	if retired {
		return RetiredPrefix + entityType
	}
	return entityType
}

// IsRetiredTable reports whether name is the retired table of some entity type.
func IsRetiredTable(name string) bool {
	return strings.HasPrefix(name, RetiredPrefix)
}
