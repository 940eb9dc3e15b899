// Package registry is the typed client for the remote installer registry.
//
// Connect checks that the server answers, authenticates with the first
// working credential strategy, and returns a Session. The Session lists,
// creates and deletes installer records and streams installer binaries.
// Every HTTP failure is classified into the installer package sentinels.
// Requests are never retried.
package registry
