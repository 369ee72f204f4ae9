// Package translate talks to an OpenRouter-compatible chat completion
// endpoint for two pipeline operations: rendering the transcript into the
// target language and reviewing that translation for quality drift.
package translate
