// Package archive builds and unpacks the offline installer bundle: a ZIP
// holding the installer binary next to its metadata sidecar.
package archive
