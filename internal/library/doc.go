// Package library lists the viewable items at the top of the library
// directory and serves a cover thumbnail for each.
//
// An item is a sub-directory or a file with a container extension (zip,
// cbz, rar, cbr, 7z, cb7, pdf). Hidden entries are skipped. Covers are
// rendered from the item's first non-empty folder and cached in a
// cache.Covers; a cover is rebuilt when the item's modification time no
// longer matches the cached row.
package library
