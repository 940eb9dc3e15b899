// Package extractor unpacks an offline installer bundle.
package extractor
