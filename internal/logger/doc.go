// Package logger wraps zap to give the uploader:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - convenience functions (Infof, ErrorKV, etc.),
//   - a bridge that feeds HTTP client diagnostics into the same logger.
//
// Workflows accept a context and pull the logger out of it, so every line
// carries the workflow name and run id.
package logger
