// Package daemon wires the job store, pipeline runner, and HTTP API into
// the long-running revoiced process: single-instance locking, graceful
// shutdown, and the retention sweep live here.
package daemon
