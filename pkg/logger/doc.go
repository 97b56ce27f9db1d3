// Package logger provides the structured logging interface used across clubkit.
//
// It wraps zerolog with a small interface so components can be handed a
// logger at construction and tests can substitute a TestLogger.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "crawler")
//	log.InfoWithFields("Page processed", map[string]interface{}{
//	    "page":    3,
//	    "records": 100,
//	})
//
// Console output is colourised and written to stderr. When Logging.File is
// set, JSON lines are also appended to that file.
package logger
