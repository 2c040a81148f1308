// Package logger wraps zerolog behind a small interface used across bookmarkdl.
//
// Console output goes to stderr with colored levels; an optional log file
// receives the same events. Components take a Logger in their constructor
// and fall back to the global one:
//
//	logger.Initialize(&cfg.Logging, logger.Options{NoColor: noColor})
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("Collection finished", map[string]interface{}{"found": 42})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
