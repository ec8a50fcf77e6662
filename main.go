package main

import (
	"fmt"
	"os"

	"github.com/docopt/docopt-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pixelomer/AltDeploy/pkg/anisette"
	"github.com/pixelomer/AltDeploy/pkg/bundle"
	"github.com/pixelomer/AltDeploy/pkg/install"
	"github.com/pixelomer/AltDeploy/pkg/portal"
	"github.com/pixelomer/AltDeploy/pkg/tools"
)

const version = "1.0.0"

const usage = `altdeploy - iOS App Deployment Tool

A command-line tool that provisions a free development certificate for your
Apple ID and installs apps onto connected iOS devices.

Usage:
  altdeploy install --app=<location> --udid=<udid>... [--device-name=<name>] [--apple-id=<email>] [--password=<password>] [--anisette=<url>] [--no-register] [--verbose]
  altdeploy -h | --help
  altdeploy --version

Commands:
  install   Sign an app with a fresh development certificate and install it on one or more devices

Options:
  --app=<location>        Path or URL of the .ipa to install
  --udid=<udid>           UDID of a target device (repeat to install on several devices)
  --device-name=<name>    Device name used when registering a new device [default: iOS Device]
  --apple-id=<email>      Apple ID email (or ALTDEPLOY_APPLE_ID env var)
  --password=<password>   Apple ID password (or ALTDEPLOY_PASSWORD env var)
  --anisette=<url>        Anisette server URL (or ALTDEPLOY_ANISETTE_URL env var)
  --no-register           Fail if a device is not already registered with the team
  --verbose               Enable debug logging
  -h --help               Show this help message
  --version               Show version

Environment Variables:
  ALTDEPLOY_APPLE_ID      Apple ID email (overridden by --apple-id)
  ALTDEPLOY_PASSWORD      Apple ID password (overridden by --password)
  ALTDEPLOY_ANISETTE_URL  Anisette server URL (overridden by --anisette)

Examples:
  # Install a local IPA
  altdeploy install --app=MyApp.ipa --udid=00008110-000A4D5E3A38801E --apple-id=me@example.com

  # Install the same app on two devices at once
  altdeploy install --app=MyApp.ipa --udid=<udid1> --udid=<udid2>

  # Install straight from a download URL, credentials from the environment
  export ALTDEPLOY_APPLE_ID=me@example.com
  export ALTDEPLOY_PASSWORD=secret
  altdeploy install --app=https://example.com/MyApp.ipa --udid=<udid>
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if cmd, _ := opts.Bool("install"); cmd {
		if err := runInstall(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func runInstall(opts docopt.Opts) error {
	appLocation, _ := opts.String("--app")
	deviceName, _ := opts.String("--device-name")
	appleID, _ := opts.String("--apple-id")
	password, _ := opts.String("--password")
	anisetteURL, _ := opts.String("--anisette")
	noRegister, _ := opts.Bool("--no-register")
	verbose, _ := opts.Bool("--verbose")

	udids := stringList(opts["--udid"])

	// Get values from environment if not provided via flags
	if appleID == "" {
		appleID = os.Getenv("ALTDEPLOY_APPLE_ID")
	}
	if password == "" {
		password = os.Getenv("ALTDEPLOY_PASSWORD")
	}
	if anisetteURL == "" {
		anisetteURL = os.Getenv("ALTDEPLOY_ANISETTE_URL")
	}

	if appleID == "" {
		return fmt.Errorf("--apple-id is required (or set ALTDEPLOY_APPLE_ID environment variable)")
	}
	if password == "" {
		return fmt.Errorf("--password is required (or set ALTDEPLOY_PASSWORD environment variable)")
	}
	if anisetteURL == "" {
		return fmt.Errorf("--anisette is required (or set ALTDEPLOY_ANISETTE_URL environment variable)")
	}
	if len(udids) == 0 {
		return fmt.Errorf("at least one --udid is required")
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	installer := &install.Installer{
		Anisette:        &anisette.HTTPProvider{URL: anisetteURL},
		Auth:            &portal.HTTPAuthenticator{Log: log},
		Portal:          &portal.HTTPClient{Log: log},
		Acquirer:        &bundle.Acquirer{Log: log},
		Signer:          &tools.ExecSigner{Log: log},
		DeviceInstaller: &tools.ExecDeviceInstaller{Log: log},
		Prompts:         install.NewPromptGate(newTerminalPrompter()),
		Log:             log,
	}

	var group errgroup.Group
	for _, udid := range udids {
		udid := udid
		group.Go(func() error {
			req := install.Request{
				Device:             portal.Device{Name: deviceName, Identifier: udid},
				AppleID:            appleID,
				Password:           password,
				AppLocation:        appLocation,
				AutoRegisterDevice: !noRegister,
			}

			done := make(chan error, 1)
			progress := installer.Install(req, func(err error) { done <- err })
			progress.SetOnChange(func(completed, total int64, label string) {
				log.Info().Str("udid", udid).Int64("completed", completed).Int64("total", total).Msg(label)
			})
			return <-done
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	fmt.Printf("Successfully installed %s on %d device(s)\n", appLocation, len(udids))
	return nil
}

// stringList normalizes docopt's repeated-option value.
func stringList(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
