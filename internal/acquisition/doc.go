// Package acquisition abstracts camera backends and keeps them alive. The
// supervisor owns an ordered backend list with role indices for stills,
// video, and multicam capture, serves the preview stream, and restarts
// backends that die or are flagged faulty.
package acquisition
