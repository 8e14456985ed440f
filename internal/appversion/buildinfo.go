// Package appversion exposes the version string stamped into the binary.
package appversion

// version is overridden by release builds with
// -ldflags "-X tock/internal/appversion.version=vX.Y.Z".
var version = "dev" //nolint:gochecknoglobals // ldflags needs a package-level target

// String reports the stamped version; local builds report "dev".
func String() string {
	return version
}
