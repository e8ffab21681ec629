// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and a helper for correlating all log lines of
// one engine session.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Format: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Session established")
//
//	// Scoped to a session:
//	l := logger.WithSession(log, sess.ID)
//	l.Warn("Preference rejected", zap.Error(err))
package logger
