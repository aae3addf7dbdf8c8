// Package postgres implements the catalog store interface using a
// PostgreSQL database as the storage backend.
package postgres
