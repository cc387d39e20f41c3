// Package config loads, validates, and defaults the TOML configuration.
//
// Every tunable the pipeline depends on lives here and is passed explicitly
// into constructors: buffer TTL and size cap, LLM connection settings, scene
// analysis concurrency and retry policy, workflow polling and heartbeat
// intervals, delivery timeouts, and logging options. Components never read
// ambient global state.
package config
