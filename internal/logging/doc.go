// Package logging centralizes slog construction and the structured field
// vocabulary shared across the import pipeline. Components receive a
// *slog.Logger from the CLI entrypoint and attach object/mediapackage
// identifiers through the context helpers so batch runs stay traceable.
package logging
