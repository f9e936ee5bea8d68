// Package core implements the bulk ticket-creation pipeline: spreadsheet
// rows are validated, parked in an in-memory preview store, and on
// confirmation handed to a background batch processor that creates one
// Jira ticket per row while an operation tracker records live progress
// for polling clients.
//
// The package has no HTTP dependencies and talks to Jira only through the
// RemoteClient interface, so every component can be tested with fakes.
package core
