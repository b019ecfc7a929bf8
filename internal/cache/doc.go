// Package cache persists library cover thumbnails.
//
// Cover metadata lives in a RowStore (SQLite) keyed by library item name:
// the blob id, the item's modification time when the cover was made, and
// the cover's content type. The encoded image lives in a BlobStore, either
// a local Badger database or an S3 bucket. Covers ties the two together and
// treats a row whose modification time no longer matches the item as a miss.
package cache
