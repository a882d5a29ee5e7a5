package config

type Signing struct{}

var _ SigningConfig = Signing{}

// GetAPIKey returns the shared secret used to sign requests. There is no default.
func (Signing) GetAPIKey() string {
	return GetEnv("API_KEY", "")
}

// GetDomain returns the domain identifier the key was issued for.
func (Signing) GetDomain() string {
	return GetEnv("API_DOMAIN", "")
}
