// Package device reports which platform the client runs on. The fingerprint
// shortcut is only offered on mobile platforms.
package device

import "context"

// Platform identifies the runtime environment of the client.
type Platform string

const (
	PlatformWeb     Platform = "web"
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

// Mobile reports whether the platform has native biometric hardware access.
func (p Platform) Mobile() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Info exposes platform detection. It takes a context so that
// implementations backed by an out-of-process bridge can time out.
type Info interface {
	Platform(ctx context.Context) Platform
}

// StaticInfo is an Info with a fixed platform, set from configuration.
type StaticInfo struct {
	platform Platform
}

func NewStaticInfo(p Platform) *StaticInfo {
	return &StaticInfo{platform: p}
}

func (s *StaticInfo) Platform(_ context.Context) Platform {
	return s.platform
}
