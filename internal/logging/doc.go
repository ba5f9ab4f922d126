// Package logging provides structured logging for HangFixer.
//
// It wraps log/slog to emit one JSON object per line. Loggers carry
// persistent attributes so that every line written while handling a workspace
// load can be filtered by workspace, phase or attempt:
//
//	logger, err := logging.NewLogger("/var/log/hangfixer", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	wl := logger.WithWorkspace("/ws/app.proj").WithAttempt(attemptID)
//	wl.Warn("sentinel write failed", "path", "/ws/app.tmp", "kind", "permission_denied")
//
// An empty directory writes to stderr. [NopLogger] discards everything and is
// what tests and optional collaborators default to.
//
// All types in this package are safe for concurrent use.
package logging
