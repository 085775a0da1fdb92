// Package sbs handles side-by-side renditions: mapping remote track URLs to
// local files and creating composite tracks, either by promoting an existing
// one or by submitting an encoder job.
package sbs
