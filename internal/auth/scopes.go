package auth

// Scopes recognised by the progress API.
const (
	ScopeProgressRead  = "progress:read"
	ScopeProgressWrite = "progress:write"
	ScopeContentAdmin  = "content:admin"
)
