package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixelomer/AltDeploy/pkg/install"
)

func TestParsePercent(t *testing.T) {
	tests := []struct {
		line    string
		percent int64
		ok      bool
	}{
		{"Installing: 40%", 40, true},
		{"Copying files... 5 %", 5, true},
		{"Install: Complete 100%", 100, true},
		{"no progress here", 0, false},
		{"bogus 250%", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		percent, ok := parsePercent(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.Equal(t, tt.percent, percent, tt.line)
		}
	}
}

func TestReportInstallProgressScalesToUnits(t *testing.T) {
	output := strings.Join([]string{
		"Copying files... 10%",
		"Copying files... 50%",
		"Installing: 90%",
		"Install: Complete 100%",
	}, "\n")

	progress := install.NewProgress(installProgressUnits)
	reportInstallProgress(strings.NewReader(output), progress)

	assert.Equal(t, int64(installProgressUnits), progress.Completed())
}

func TestReportInstallProgressIgnoresRegression(t *testing.T) {
	output := strings.Join([]string{
		"Installing: 80%",
		"Installing: 20%",
		"Installing: 90%",
	}, "\n")

	progress := install.NewProgress(installProgressUnits)
	reportInstallProgress(strings.NewReader(output), progress)

	// 90% of 10 units, never driven backwards by the out-of-order line.
	assert.Equal(t, int64(9), progress.Completed())
}

func TestReportInstallProgressNoPercentLines(t *testing.T) {
	progress := install.NewProgress(installProgressUnits)
	reportInstallProgress(strings.NewReader("Copying files\nDone\n"), progress)
	assert.Equal(t, int64(0), progress.Completed())
}
