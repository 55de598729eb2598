// Package mediaproc implements the media-processing pipelines: the typed
// step catalog (filter, background, frame, text, chromakey, collage merge,
// animation alignment, video boomerang) and the per-kind process entry
// points that turn captured files into processed artifacts.
package mediaproc
