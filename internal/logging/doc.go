// Package logging builds the slog loggers used by the wellness binaries.
//
// The text format is a compact colorized line (time, level tag, message,
// key=value attributes); "json" selects slog's JSON handler. The terminal
// client points logs at stderr or a file so they never interleave with the
// conversation.
package logging
