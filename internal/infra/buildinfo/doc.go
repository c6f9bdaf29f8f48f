// Package buildinfo exposes build information for guildsync-server.
//
// Version, Commit and BuildTime are injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/guildsync/internal/infra/buildinfo.Version=v0.3.0"
//
// GoVersion falls back to the toolchain recorded in the binary.
package buildinfo
