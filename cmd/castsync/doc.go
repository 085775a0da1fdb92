// Package main hosts the castsync CLI entrypoint and command graph.
//
// The Cobra-based command tree covers single and batch episode imports,
// series metadata sync, workflow cleanup, segment fetching, and
// configuration scaffolding. It centralizes configuration resolution and
// service wiring so subcommands stay declarative while the heavy lifting
// lives in the internal packages.
package main
