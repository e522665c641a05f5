package core

// Persisted client state keys.
const (
	KeyToken         = "token"
	KeyRefreshToken  = "refreshToken"
	KeyTenant        = "tenantSubdomain"
	KeyAccessibility = "accessibility-settings"
	KeyAuthSnapshot  = "auth-storage"
)

// Storage is a persistent string key-value store, the client side equivalent of browser local storage.
type Storage interface {
	// Get returns the value stored under key and whether it was found.
	Get(key string) (value string, found bool, err error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Delete removes keys. Missing keys are not an error.
	Delete(keys ...string) error
}
