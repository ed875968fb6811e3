// Package raster provides the in-memory raster primitives used by the
// correlation pipeline: single-band grids with validity masks, multi-band
// timestamped images, ordered image collections, and per-pixel reducers.
//
// No-data is always represented by the validity mask, never by NaN or a
// magic value. Zero is a valid sample.
package raster
