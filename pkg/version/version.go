// Package version exposes the quantcal build version.
package version

// version is set at build time via -ldflags "-X github.com/rmarkell/quantcal/pkg/version.version=v1.2.3".
//
//nolint:gochecknoglobals // Build-time injection requires a package-level variable.
var version = "dev"

// GetVersion returns the version string baked into the binary.
// Returns "dev" for local builds without ldflags.
func GetVersion() string {
	return version
}
