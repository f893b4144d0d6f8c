package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/camgrab/internal/camera"
	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/drivers"
	"github.com/smazurov/camgrab/internal/logging"
	"github.com/spf13/cobra"
)

func parseTransport(s string) (hal.Transport, error) {
	switch s {
	case "all", "":
		return hal.TransportAll, nil
	case "gige":
		return hal.TransportGigE, nil
	case "usb":
		return hal.TransportUSB3, nil
	default:
		return 0, fmt.Errorf("unknown transport %q (gige, usb, all)", s)
	}
}

// CreateListCmd creates the list command.
func CreateListCmd() *cobra.Command {
	var driverName string
	var transport string
	var sdkPath string
	var runtimePath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List connected cameras",
		Long:  `Enumerates GigE and USB3 cameras and prints their transport, model, serial and address.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("list")

			mask, err := parseTransport(transport)
			if err != nil {
				logger.Error("Invalid transport", "error", err)
				os.Exit(1)
			}

			drv, err := drivers.Open(driverName, sdkPath, runtimePath)
			if err != nil {
				logger.Error("Driver unavailable", "driver", driverName, "error", err)
				os.Exit(1)
			}

			descs, err := camera.Enumerate(drv, mask)
			if err != nil {
				logger.Error("Enumeration failed", "error", err)
				os.Exit(1)
			}

			if len(descs) == 0 {
				fmt.Println("No cameras found.")
				return
			}
			fmt.Printf("Found %d camera(s):\n", len(descs))
			for i, d := range descs {
				fmt.Printf("  [%d] %s\n", i, d)
			}
		},
	}

	cmd.Flags().StringVar(&driverName, "driver", "mvs", "Camera driver (mvs, sim)")
	cmd.Flags().StringVar(&transport, "transport", "all", "Transport filter (gige, usb, all)")
	cmd.Flags().StringVar(&sdkPath, "sdk-path", "", "Vendor SDK installation root")
	cmd.Flags().StringVar(&runtimePath, "runtime-path", "", "Vendor SDK runtime library directory")

	return cmd
}
