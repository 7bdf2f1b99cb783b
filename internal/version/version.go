package version

// Version and Commit are set at build time via:
//
//	go build -ldflags "-X cs2ctl/internal/version.Version=0.2.0 -X cs2ctl/internal/version.Commit=abc123"
var (
	Version = "dev"
	Commit  = "dev"
)
