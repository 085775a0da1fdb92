// Package opencast implements the HTTP client for an Opencast-compatible
// media platform: episode search, master media package retrieval across
// server generations, workflow control, series and account management.
//
// The client separates two failure families. Expected absence (an episode
// not yet published, an endpoint a given server version lacks) is reported
// through ok-style return values. Transport faults, decode failures, and
// unexpected statuses on mutating calls are errors wrapping the package
// sentinels.
package opencast
