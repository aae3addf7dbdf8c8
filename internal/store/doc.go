// Package store defines the persistence interfaces of the verification
// workflow engine and their shared error vocabulary. Implementations live
// under internal/platform: the filesystem-backed pending/history/status
// stores and the PostgreSQL catalog store.
package store
