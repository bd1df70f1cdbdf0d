// Package whisper provides the request-processing core of a content
// management system: content resolution, a sandboxed JavaScript plugin
// and theme runtime, and a staged body render pipeline.
//
// The packages under this module compose into the whisperd server in
// `cmd/whisperd`.
package whisper
