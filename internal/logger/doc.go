// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level configuration and parsing utilities,
//   - key-value helpers (DebugKV, InfoKV, WarnKV, ErrorKV),
//   - a release.Reporter adapter so the packaging core stays logger-agnostic.
//
// Commands accept a context and extract the logger from it, enabling
// scoped, structured logging throughout the codebase.
package logger
