// Package mvs binds the hal contract to the vendor MVS SDK
// (MvCameraControl). The binding is cgo and only compiles with the "mvs"
// build tag on a machine with the SDK installed; every other build gets
// the stub driver so the rest of the application still links.
package mvs

import "errors"

// Config locates the vendor SDK. It replaces the ambient environment
// variables the SDK's own samples rely on; deployment passes it once at
// startup.
type Config struct {
	// SDKPath is the SDK installation root, usually /opt/MVS.
	SDKPath string
	// RuntimePath is the shared-library directory, usually /opt/MVS/lib.
	RuntimePath string
}

// DefaultConfig returns the stock installation layout.
func DefaultConfig() Config {
	return Config{
		SDKPath:     "/opt/MVS",
		RuntimePath: "/opt/MVS/lib",
	}
}

// ErrUnavailable is returned by NewDriver in binaries built without the
// mvs tag.
var ErrUnavailable = errors.New("mvs driver not compiled in (build with -tags mvs)")
