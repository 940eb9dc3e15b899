// Package uploader publishes a locally built installer to the registry.
//
// It loads the build metadata, guards the build folder with a publish marker,
// authenticates, reconciles the registry entry and optionally uploads the
// installer binary. Failures can be written as an error window payload.
package uploader
