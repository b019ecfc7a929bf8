// Package filter classifies provider entries and picks folder cover pages.
//
// Two strategies are provided:
//
//	filter.Physical{} // archives and directories: extension table lookup
//	filter.Pdf{}      // PDF documents: every page is an image
//
// Both share the same cover selection rule: the first candidate whose base
// name contains one of the cover keywords ("cover", then "top"), compared
// case-insensitively, or else the first candidate in the given order.
// Callers are expected to pass candidates already natural-sorted.
package filter
