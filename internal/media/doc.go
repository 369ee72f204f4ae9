// Package media shells out to ffmpeg-family tools for local audio and
// container work: probing uploads and remuxing narration over the original
// footage.
package media
