// Package ffmpeg wraps the ffmpeg command line tool for the video operations
// the core needs: scaling to browser-playable H.264, boomerang composition,
// and animated image resizing.
package ffmpeg
