// Package modelcache provides the version information for modelcache.
package modelcache

// Version is the current version of modelcache.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
