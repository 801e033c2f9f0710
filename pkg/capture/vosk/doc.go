// Package vosk provides an offline primary recognizer for package capture,
// backed by a Vosk model. Build with -tags vosk to link libvosk.
package vosk
