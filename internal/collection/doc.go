// Package collection is the source-of-truth media store. It persists media
// item metadata in SQLite, keeps the on-disk artifacts consistent with the
// database, maintains the derivation cache, and emits change events on the
// process bus.
package collection
