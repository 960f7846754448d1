// Package logging provides structured logging for overseer runs.
//
// The package wraps log/slog with a JSON handler. A [Logger] carries a set of
// persistent attributes (job, task, phase) that are prepended to every entry,
// which makes a single run's log easy to filter after the fact.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/state", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	jobLogger := logger.WithJob("build-all")
//	jobLogger.WithTask(id, "lint").Info("task started")
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"task started","job":"build-all","task_id":"01J...","task":"lint"}
//
// # Disabled Logging
//
// Components accept a nil *Logger and substitute [NopLogger], so callers that
// do not care about logs never need to construct one.
package logging
