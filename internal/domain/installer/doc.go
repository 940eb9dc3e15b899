// Package installer contains the core domain types for publishing installers.
//
// It defines Record (metadata of one built installer for one platform and
// version), the reconciliation Action, and the sentinel errors that classify
// every failure the uploader can surface.
package installer
