// Package common holds helpers shared by several services.
//
// It connects to the installer registry from merged settings, guards a build
// folder against parallel publishing, detects the current system actor
// (hostname/username) for the audit log and writes error reports.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
