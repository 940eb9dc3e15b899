// Package packager bundles a built installer with its metadata for offline transfer.
//
// The resulting ZIP is unpacked on the receiving side by the extractor and
// published from there with the uploader.
package packager
