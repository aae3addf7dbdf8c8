// Package mocks provides hand-written mock implementations of the
// external interfaces for testing: the vision extractor, the catalog
// store, and the learning hook. Behavior is injected through optional
// function fields; the zero value of each mock succeeds with empty
// results.
package mocks
