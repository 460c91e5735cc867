package credentials

// Credentials represents the stored bearer tokens in credentials.toml, one
// per chat backend.
type Credentials struct {
	Version int                         `toml:"version"`
	Targets map[string]TargetCredential `toml:"targets"`
}

// TargetCredential holds the token for a single backend.
type TargetCredential struct {
	Token string `toml:"token"`
}
