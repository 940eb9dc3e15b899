// Package configure persists registry connection settings.
//
// Settings are verified against the registry before they are written, unless
// the check is skipped.
package configure
