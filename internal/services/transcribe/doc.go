// Package transcribe submits uploaded videos to the managed transcription
// service and waits for results with a bounded exponential-backoff poll.
package transcribe
