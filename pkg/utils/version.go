// Package utils holds build metadata for the semidx binary and shared test
// helpers under utils/test.
package utils

import "fmt"

// Set at link time by the release build (-X .../pkg/utils.Version=...).
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo renders the build metadata as printed by `semidx version`.
func BuildInfo() string {
	return fmt.Sprintf("semidx %s\nsha:   %s\nbuilt: %s", Version, Sha, Buildtime)
}
