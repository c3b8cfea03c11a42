package main

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (no workspace, invalid config, missing TigerGraph settings)
	ExitDataError   = 3 // Data error (malformed table, schema mismatch, incompatible dimensions)
	ExitNotFitted   = 4 // No embedding, or the embedding is stale
	ExitRemoteError = 5 // Dataset host or TigerGraph failure (auth, rate limit, network)
)
