package cmd

import (
	"fmt"
	"os"

	"github.com/smazurov/camgrab/internal/camera"
	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/drivers"
	"github.com/smazurov/camgrab/internal/hal/mvs"
	"github.com/smazurov/camgrab/internal/logging"
	"github.com/spf13/cobra"
)

// CreateValidateCmd creates the validate command. It walks the same
// checks a deployment runbook would: SDK present, driver loadable,
// cameras enumerable, target camera openable.
func CreateValidateCmd() *cobra.Command {
	var driverName string
	var sdkPath string
	var runtimePath string
	var address string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the camera environment",
		Long: `Checks that the vendor SDK is installed, the driver loads, cameras ` +
			`enumerate and the target camera can be opened exclusively. Exits non-zero ` +
			`on the first failed check.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})

			step := func(name string, ok bool, detail string) {
				if quiet && ok {
					return
				}
				mark := "ok"
				if !ok {
					mark = "FAIL"
				}
				fmt.Printf("%-20s %s", name, mark)
				if detail != "" {
					fmt.Printf("  (%s)", detail)
				}
				fmt.Println()
			}
			fail := func(name, detail string) {
				step(name, false, detail)
				os.Exit(1)
			}

			if driverName == "mvs" || driverName == "" {
				root := sdkPath
				if root == "" {
					root = mvs.DefaultConfig().SDKPath
				}
				if _, err := os.Stat(root); err != nil {
					fail("sdk installation", root+" not found")
				}
				step("sdk installation", true, root)

				if !mvs.Available() {
					fail("driver binding", "binary built without -tags mvs")
				}
				step("driver binding", true, "")
			}

			drv, err := drivers.Open(driverName, sdkPath, runtimePath)
			if err != nil {
				fail("driver load", err.Error())
			}
			step("driver load", true, drv.Name())

			descs, err := camera.Enumerate(drv, hal.TransportAll)
			if err != nil {
				fail("enumeration", err.Error())
			}
			step("enumeration", true, fmt.Sprintf("%d camera(s)", len(descs)))
			if len(descs) == 0 {
				fail("camera present", "no cameras found")
			}

			desc := descs[0]
			if address != "" {
				var ok bool
				desc, ok = camera.FindByAddress(descs, address)
				if !ok {
					fail("camera present", address+" not found")
				}
			}
			step("camera present", true, desc.String())

			sess := camera.NewSession(drv, logging.GetLogger("validate"))
			if err := sess.Open(desc); err != nil {
				fail("exclusive open", err.Error())
			}
			sess.Close()
			step("exclusive open", true, "")

			if !quiet {
				fmt.Println("Environment OK.")
			}
		},
	}

	cmd.Flags().StringVar(&driverName, "driver", "mvs", "Camera driver (mvs, sim)")
	cmd.Flags().StringVar(&sdkPath, "sdk-path", "", "Vendor SDK installation root")
	cmd.Flags().StringVar(&runtimePath, "runtime-path", "", "Vendor SDK runtime library directory")
	cmd.Flags().StringVar(&address, "address", "", "Camera IP or serial to probe (default: first found)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print failed checks")

	return cmd
}
