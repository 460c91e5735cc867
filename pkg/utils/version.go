// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Build metadata, set with -ldflags "-X" at release time.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionInfo is the multi-line build description printed by
// "cloudchat version".
func VersionInfo() string {
	return fmt.Sprintf("Version: %s\nSha: %s\nBuilt at: %s\n", Version, Sha, Buildtime)
}

// UserAgent identifies this client to the chat backend.
func UserAgent() string {
	return "cloudchat/" + Version
}
