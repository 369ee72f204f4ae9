// Package pipeline orchestrates the localization stages for a job: upload,
// transcribe, translate, quality review, synthesize, merge, publish. One
// goroutine runs each job end to end; observable state lives in the job
// store and is written before each stage begins.
package pipeline
