// Package drivers selects a hal backend by name.
package drivers

import (
	"fmt"

	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/halsim"
	"github.com/smazurov/camgrab/internal/hal/mvs"
)

// Open returns the named backend: "mvs" for real hardware, "sim" for the
// simulator. sdkPath/runtimePath only apply to mvs; empty strings select
// the stock /opt/MVS layout.
func Open(name, sdkPath, runtimePath string) (hal.Driver, error) {
	switch name {
	case "mvs", "":
		cfg := mvs.DefaultConfig()
		if sdkPath != "" {
			cfg.SDKPath = sdkPath
		}
		if runtimePath != "" {
			cfg.RuntimePath = runtimePath
		}
		return mvs.NewDriver(cfg)
	case "sim":
		// One simulated GigE camera with the default sensor; enough for
		// exercising the full pipeline on a development machine.
		cam := halsim.NewCamera(halsim.Config{
			IP:      0xC0A8027C, // 192.168.2.124
			Formats: []hal.PixelFormat{hal.PixelBayerRG8, hal.PixelMono8},
		})
		return halsim.New(cam), nil
	default:
		return nil, fmt.Errorf("unknown driver %q (mvs, sim)", name)
	}
}
