// Package logging provides the slog construction and attribute helpers used
// across loudsync. Console output uses a compact key=value format; json output
// is available for machine consumption. Loggers are plain *slog.Logger values
// so packages depend only on the standard library type.
package logging
