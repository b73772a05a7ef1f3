// Package server implements the HTTP and stream surface for StoryRiver.
//
// The implementation is organized into specialized files for
// configuration, the stream hub, subscribers, routing, validation, rate
// limiting, and HTTP handlers to keep the codebase maintainable and
// testable as the project grows.
package server
