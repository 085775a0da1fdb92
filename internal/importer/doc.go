// Package importer turns remote media packages into local multimedia
// objects. Imports are idempotent: an episode that already has a local
// object only gets its media refreshed, and recorder identity blocks let an
// episode find the object it was scheduled from.
package importer
