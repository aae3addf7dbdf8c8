// Package api contains the HTTP handlers of the verification workflow
// API: pending-image listing and actions, reprocessing, the batch sweep,
// and operator authentication.
package api
