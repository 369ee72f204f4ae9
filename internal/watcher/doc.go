// Package watcher submits videos dropped into a configured ingest
// directory, as an alternative to the HTTP upload endpoint.
package watcher
