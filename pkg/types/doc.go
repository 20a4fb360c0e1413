// Package types defines the data model shared by the slate store: entity
// records, handles, field definitions, filters, configuration, and the
// standard error values returned by every operation.
package types
