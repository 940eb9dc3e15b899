package installer

import (
	"maps"
	"path/filepath"
	"slices"
)

// Supported platform identifiers.
const (
	PlatformWindows = "windows"
	PlatformLinux   = "linux"
	PlatformDarwin  = "darwin"
)

// Platforms returns the closed set of platform identifiers, sorted.
func Platforms() []string {
	return []string{PlatformDarwin, PlatformLinux, PlatformWindows}
}

// IsKnownPlatform reports whether p is one of Platforms.
func IsKnownPlatform(p string) bool {
	return slices.Contains(Platforms(), p)
}

// Key identifies a record on the registry.
type Key struct {
	// Platform is the OS identifier.
	Platform string
	// Version is the build version.
	Version string
}

// String renders the key as platform/version.
func (k Key) String() string {
	return k.Platform + "/" + k.Version
}

// Record describes one built installer artifact.
type Record struct {
	// Version is the semantic build version.
	Version string `json:"version"`
	// Platform is one of Platforms.
	Platform string `json:"platform"`
	// Filename is the base name of InstallerPath.
	Filename string `json:"filename"`
	// InstallerPath is the local path of the binary. It never leaves this machine.
	InstallerPath string `json:"installer_path,omitempty"`
	// PythonVersion is the runtime version bundled into the installer.
	PythonVersion string `json:"python_version"`
	// Checksum is the hex digest of the installer file.
	Checksum string `json:"checksum"`
	// ChecksumAlgorithm names the hash function behind Checksum.
	ChecksumAlgorithm string `json:"checksum_algorithm"`
	// Size is the installer size in bytes.
	Size int64 `json:"size"`
	// PythonModules maps the application's own dependencies to versions.
	PythonModules map[string]string `json:"python_modules"`
	// RuntimePythonModules maps the bundled runtime's dependencies to versions.
	RuntimePythonModules map[string]string `json:"runtime_python_modules"`
}

// Key returns the registry lookup key of the record.
func (r *Record) Key() Key {
	return Key{Platform: r.Platform, Version: r.Version}
}

// WithInstallerPath returns a copy bound to path, with Filename derived from it.
func (r *Record) WithInstallerPath(path string) *Record {
	cloned := r.Clone()
	cloned.InstallerPath = path
	cloned.Filename = filepath.Base(path)

	return cloned
}

// Equal reports whether both records describe the same installer.
// InstallerPath is ignored; nil and empty module maps are equal.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}

	return r.Version == other.Version &&
		r.Platform == other.Platform &&
		r.Filename == other.Filename &&
		r.PythonVersion == other.PythonVersion &&
		r.Checksum == other.Checksum &&
		r.ChecksumAlgorithm == other.ChecksumAlgorithm &&
		r.Size == other.Size &&
		maps.Equal(r.PythonModules, other.PythonModules) &&
		maps.Equal(r.RuntimePythonModules, other.RuntimePythonModules)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	cloned := *r
	cloned.PythonModules = cloneModules(r.PythonModules)
	cloned.RuntimePythonModules = cloneModules(r.RuntimePythonModules)

	return &cloned
}

// Portable returns a deep copy without InstallerPath. This is the shape that
// is sent to the registry and written to archive sidecars.
func (r *Record) Portable() *Record {
	cloned := r.Clone()
	cloned.InstallerPath = ""

	return cloned
}

// cloneModules copies m and never returns nil, so encoded records always carry {}.
func cloneModules(m map[string]string) map[string]string {
	cloned := make(map[string]string, len(m))
	maps.Copy(cloned, m)

	return cloned
}
