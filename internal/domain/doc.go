// Package domain defines the core business entities of the verification
// workflow: extracted card records, pending images awaiting human review,
// history entries for undo, and batch job status. It also holds the pure
// normalization and merge rules shared by the stores and services.
package domain
