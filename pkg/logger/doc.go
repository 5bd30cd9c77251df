// Package logger provides structured logging for igcollect.
//
// It wraps zerolog behind a small Logger interface so components can take a
// logger as a dependency and tests can swap in NewTestLogger or
// NewNopLogger. Console output is colorized and written to stderr; when
// LoggingConfig.File is set, JSON lines are appended to that file as well.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("collection", "Food")
//	log.InfoWithFields("Collection finished", map[string]interface{}{
//	    "appended": 12,
//	    "skipped":  3,
//	})
package logger
