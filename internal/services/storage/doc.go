// Package storage is the S3-backed artifact store for pipeline inputs and
// outputs: source videos, transcription documents, and localized results.
package storage
