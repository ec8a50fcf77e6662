package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// ExecSigner signs app bundles by invoking a zsign-compatible binary. The
// certificate and profile are staged as temporary files for the duration of
// the call and removed afterwards.
type ExecSigner struct {
	// Binary is the signing executable. Defaults to "zsign" when empty.
	Binary string
	Log    zerolog.Logger
}

func (s *ExecSigner) binary() string {
	if s.Binary != "" {
		return s.Binary
	}
	return "zsign"
}

// SignApp re-signs the unpacked .app bundle in place using the certificate's
// key pair and the provisioning profile.
func (s *ExecSigner) SignApp(ctx context.Context, appPath string, certificate *portal.Certificate, profile *portal.ProvisioningProfile) error {
	password := uuid.NewString()
	p12Data, err := certificate.P12(password)
	if err != nil {
		return fmt.Errorf("failed to package certificate: %w", err)
	}

	stagingDir, err := os.MkdirTemp("", "altdeploy-sign-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(stagingDir)

	p12Path := filepath.Join(stagingDir, "certificate.p12")
	if err := os.WriteFile(p12Path, p12Data, 0600); err != nil {
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	profilePath := filepath.Join(stagingDir, "profile.mobileprovision")
	if err := os.WriteFile(profilePath, profile.Data, 0600); err != nil {
		return fmt.Errorf("failed to write provisioning profile: %w", err)
	}

	args := signArgs(p12Path, password, profilePath, appPath)
	s.Log.Debug().Str("binary", s.binary()).Str("app", appPath).Msg("signing app")

	cmd := exec.CommandContext(ctx, s.binary(), args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to sign app: %w: %s", err, string(output))
	}
	return nil
}

func signArgs(p12Path, password, profilePath, appPath string) []string {
	return []string{
		"-k", p12Path,
		"-p", password,
		"-m", profilePath,
		"-f",
		appPath,
	}
}
