// Package log builds the application's slog logger.
//
// Every logger returned by this package is wrapped in a SecureHandler, which
// masks attributes whose key names a secret (password, token, cookie, ...)
// and rewrites database connection strings so their password never reaches
// the log:
//
//	postgres://crawler:hunter2@db/ruthless  ->  postgres://crawler:***REDACTED***@db/ruthless
//	host=db password=hunter2 dbname=x        ->  host=db password=***REDACTED*** dbname=x
//
// The default level is Info; verbose mode switches to Debug.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
