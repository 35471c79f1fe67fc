// Package logger provides the structured logging interface used across followgraph.
//
// It wraps zerolog behind a small Logger interface so pipeline stages can
// attach fields (account IDs, cursors, queries) without depending on zerolog
// directly, and so tests can swap in NewNopLogger or a capturing TestLogger.
//
// Console output goes to stderr so that tables and reports written to stdout
// stay machine readable. When a log file is configured, records are written
// to both the console and the file.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	logger.WithField("query", "#opendata").Info("Searching accounts")
package logger
