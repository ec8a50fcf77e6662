package tools

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/pixelomer/AltDeploy/pkg/install"
)

// installProgressUnits is the share of the unified progress scale owned by
// the device transfer.
const installProgressUnits = 10

var percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)

// ExecDeviceInstaller installs signed bundles over USB by invoking an
// ideviceinstaller-compatible binary and folding its percentage output into
// the shared progress tracker.
type ExecDeviceInstaller struct {
	// Binary is the installer executable. Defaults to "ideviceinstaller"
	// when empty.
	Binary string
	Log    zerolog.Logger
}

func (d *ExecDeviceInstaller) binary() string {
	if d.Binary != "" {
		return d.Binary
	}
	return "ideviceinstaller"
}

// InstallApp installs the bundle at appPath onto the device with the given
// UDID. Percent lines from the tool's output advance progress by up to
// installProgressUnits.
func (d *ExecDeviceInstaller) InstallApp(ctx context.Context, appPath, udid string, progress *install.Progress) error {
	args := []string{"-u", udid, "-i", appPath}
	d.Log.Debug().Str("binary", d.binary()).Str("udid", udid).Msg("installing app")

	cmd := exec.CommandContext(ctx, d.binary(), args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open installer output: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start installer: %w", err)
	}

	reportInstallProgress(stdout, progress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to install app: %w", err)
	}
	return nil
}

// reportInstallProgress scans percent lines ("Installing: 40%") out of the
// tool's output and advances the tracker by the delta since the last report,
// scaled to installProgressUnits.
func reportInstallProgress(r io.Reader, progress *install.Progress) {
	var reported int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		percent, ok := parsePercent(scanner.Text())
		if !ok {
			continue
		}
		units := percent * installProgressUnits / 100
		if units > reported {
			progress.Add(units - reported)
			reported = units
		}
	}
}

// parsePercent extracts a 0-100 percentage from one output line.
func parsePercent(line string) (int64, bool) {
	match := percentPattern.FindStringSubmatch(line)
	if match == nil {
		return 0, false
	}
	percent, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil || percent > 100 {
		return 0, false
	}
	return percent, true
}
