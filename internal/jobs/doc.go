// Package jobs defines the localization job model and its SQLite-backed
// store. A job moves through an ordered sequence of pipeline stages and
// ends in exactly one terminal state; the store enforces both rules at
// write time so concurrent readers always observe a consistent lifecycle.
package jobs
