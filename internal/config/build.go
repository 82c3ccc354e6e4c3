package config

// Build metadata set at link time, e.g.
//
//	go build -ldflags "-X weatheralert/internal/config.version=1.4.0 \
//	    -X weatheralert/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X weatheralert/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected build metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
