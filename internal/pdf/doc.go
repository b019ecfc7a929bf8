// Package pdf loads paginated documents and rasterizes individual pages.
// The libvips pdfload backend (poppler or PDFium) does the rendering; the
// document bytes are held in memory so pages can be rendered independently.
package pdf
