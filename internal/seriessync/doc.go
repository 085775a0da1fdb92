// Package seriessync keeps local series and their remote counterparts in
// step: create, update with self-healing recreate, best-effort delete, and
// series resolution during imports.
package seriessync
