// Package llm wraps the OpenRouter chat completion API for scene analysis
// and PDF structuring.
//
// All calls request JSON-mode output at temperature zero. Transient HTTP
// failures, rate limits, and empty completions are retried with exponential
// backoff; Retry-After headers are honored when present. The Provider
// interface is what pipeline stages depend on, so tests substitute stubs
// without any network involvement.
package llm
