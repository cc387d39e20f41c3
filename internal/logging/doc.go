// Package logging centralizes slog construction and the structured field
// vocabulary used across the pipeline.
//
// Loggers are built from config (console or JSON format, level, optional log
// file fan-out). Attr helpers keep call sites terse and the Field* constants
// keep keys consistent so log queries work across components. Context
// carriers attach job and stage identity once and WithContext re-applies
// them to any logger.
//
// Script content must never reach a log record; log keys and counts, not
// payloads.
package logging
