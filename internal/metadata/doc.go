// Package metadata loads and validates the build metadata record written by
// the installer build step.
//
// The record is checked against an embedded JSON schema, its version must be
// a semantic version, and the installer binary it points to must exist. No
// network access happens here.
package metadata
