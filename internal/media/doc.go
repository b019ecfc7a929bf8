// Package media turns provider entries into images and thumbnails.
//
// Codec is the decode/encode boundary; ImagingCodec implements it with
// disintegration/imaging and the golang.org/x/image decoders. Thumbnailer
// shrinks an entry to a square bounding box, using libvips when InitVips has
// run and falling back to the codec otherwise. Entries that cannot be read
// or decoded are replaced by Placeholder. LoadThumbnails fans a folder's
// entries out over a worker pool and stops at the next entry boundary when
// its context is canceled.
package media
