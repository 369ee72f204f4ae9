// Package speech turns translated text into narration audio via the managed
// synthesis service, picking a voice that matches the target language.
package speech
