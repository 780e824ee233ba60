package version

// Version is the service version. It is overwritten at build time with
// -ldflags "-X github.com/hrygo/secretary/internal/version.Version=...".
var Version = "0.1.0"

// DevVersion is the version reported outside of prod mode.
var DevVersion = "0.1.0-dev"

// GetCurrentVersion returns the version for the given server mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}
