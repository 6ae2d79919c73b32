package common

const (
	// AuthorizationHeaderName carries the bearer credential on sync requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// SyncPath is the HTTP route of the sync endpoint.
	SyncPath = "/api/v1/sync"

	// HealthPath is the unauthenticated liveness route used by the client's
	// online watcher.
	HealthPath = "/healthz"
)
