// Package logging provides a minimal logging interface and adapters for banter.
//
// The Logger interface defines the structured logging methods (Debug, Info,
// Warn, Error with slog style key/value arguments) that conversations, agents
// and model clients use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with component / conversation scoping and helpers for
//     model calls and produced turns
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "text", false)
//	conv := core.NewConversation(topic, func(o *core.ConversationOptions) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
