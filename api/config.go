// Package api provides an HTTP API server over a semantic database and its
// optional tag index.
package api

import "github.com/chataize/semantic-index/pkg/semantic"

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Snapshot is where POST /v1/snapshot writes the database. Nil disables
	// the endpoint.
	Snapshot semantic.Snapshotter[string]
}
