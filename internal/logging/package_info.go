// Package logging contains the relay's logging helpers: the default log format, loggers carried in
// request contexts, and debug-level request logging.
package logging
