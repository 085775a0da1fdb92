// Package library holds the local content model: multimedia objects with
// tracks, pictures, and property bags, series, and the taxonomy tags, all
// persisted in SQLite.
package library
