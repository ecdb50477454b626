package contracts

import "fmt"

const (
	// Version is the current release of the dashboard.
	Version = "1.0.0"

	// DataFormatVersion identifies the accepted rental file layout.
	DataFormatVersion = "v1"

	// APIVersion identifies the HTTP and websocket contracts.
	APIVersion = "v1"
)

// Set at build time with -ldflags "-X".
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// BuildString describes the binary for --version output.
func BuildString() string {
	return fmt.Sprintf("bikedash %s (commit %s, built %s, api %s, data %s)",
		Version, GitCommit, BuildTime, APIVersion, DataFormatVersion)
}
