// Package log builds the slog loggers used by pageaudit.
//
// Every logger is wrapped in a RedactingHandler, which masks credentials
// before they reach the output:
//   - attributes whose key names a credential (cookie, authorization, token, ...)
//   - values that look like bearer tokens or JWTs
//   - credential query parameters inside logged URLs, keeping the rest of the URL
//
// # Usage
//
//	logger := log.New(os.Stderr, log.Options{Verbose: true})
//	logger.Debug("navigating", "url", target.URL, "cookie", suite.Cookie)
//	// cookie=***REDACTED***
package log
