package install

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pixelomer/AltDeploy/pkg/anisette"
	"github.com/pixelomer/AltDeploy/pkg/bundle"
	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// Unit budget for one installation: one unit per stage boundary, the rest
// for device-install sub-progress.
const (
	stageUnits   = 9
	installUnits = 10
	totalUnits   = stageUnits + installUnits
)

// Signer re-signs an unpacked .app bundle with the provisioned certificate
// and profile.
type Signer interface {
	SignApp(ctx context.Context, appPath string, certificate *portal.Certificate, profile *portal.ProvisioningProfile) error
}

// DeviceInstaller pushes a signed bundle onto a physical device, composing
// its sub-progress into the shared tracker.
type DeviceInstaller interface {
	InstallApp(ctx context.Context, appPath, udid string, progress *Progress) error
}

// Request describes one installation.
type Request struct {
	Device             portal.Device
	AppleID            string
	Password           string
	AppLocation        string // local IPA path or download URL
	AutoRegisterDevice bool
}

// Installer coordinates the provisioning workflow. All collaborators are
// explicit fields so independent installations can run concurrently against
// the same instance; each Run owns its own stage state.
type Installer struct {
	Anisette        anisette.Provider
	Auth            portal.Authenticator
	Portal          portal.Client
	Acquirer        *bundle.Acquirer
	Signer          Signer
	DeviceInstaller DeviceInstaller
	Prompts         *PromptGate
	Log             zerolog.Logger
}

// Install starts the workflow on a new goroutine and returns its progress
// handle immediately. The completion callback is invoked exactly once with
// nil on success or the single terminating error.
func (i *Installer) Install(req Request, completion func(error)) *Progress {
	progress := NewProgress(totalUnits)
	go func() {
		completion(i.Run(context.Background(), req, progress))
	}()
	return progress
}

// Run executes the workflow synchronously: fingerprint acquisition,
// authentication, team resolution, device registration, certificate
// provisioning, bundle acquisition, App ID registration and feature sync,
// profile fetch, then signing and device installation. The first failure
// halts the chain and is returned unchanged; the work directory is deleted
// on every terminal path.
func (i *Installer) Run(ctx context.Context, req Request, progress *Progress) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	progress.registerCancel(cancel)

	workDir := filepath.Join(os.TempDir(), uuid.NewString())
	defer os.RemoveAll(workDir)

	defer func() {
		if err != nil && errors.Is(err, context.Canceled) {
			err = ErrCancelled
		}
		if err != nil {
			i.Log.Error().Err(err).Str("udid", req.Device.Identifier).Msg("installation failed")
		}
	}()

	log := i.Log.With().Str("udid", req.Device.Identifier).Logger()

	if err := beginStage(progress, "Requesting anisette data..."); err != nil {
		return err
	}
	anisetteData, err := i.Anisette.FetchAnisetteData(ctx)
	if err != nil {
		return err
	}
	progress.step()

	if err := beginStage(progress, "Authenticating with your Apple ID..."); err != nil {
		return err
	}
	account, session, err := i.Auth.Authenticate(ctx, req.AppleID, req.Password, anisetteData, func() (string, bool) {
		return i.Prompts.RequestOneTimeCode()
	})
	if err != nil {
		if errors.Is(err, portal.ErrVerificationDeclined) {
			return ErrCancelled
		}
		return err
	}
	progress.step()

	if err := beginStage(progress, "Fetching team information..."); err != nil {
		return err
	}
	team, err := i.resolveTeam(ctx, account, session)
	if err != nil {
		return err
	}
	log.Debug().Str("team", team.Identifier).Str("type", string(team.Type)).Msg("resolved team")
	progress.step()

	if err := beginStage(progress, "Registering device..."); err != nil {
		return err
	}
	device, err := i.resolveDevice(ctx, req.Device, req.AutoRegisterDevice, team, session)
	if err != nil {
		return err
	}
	progress.step()

	if err := beginStage(progress, "Fetching certificates..."); err != nil {
		return err
	}
	certificate, err := i.resolveCertificate(ctx, team, session)
	if err != nil {
		return err
	}
	log.Debug().Str("serial", certificate.SerialNumber).Msg("provisioned certificate")
	progress.step()

	if err := beginStage(progress, "Downloading your app..."); err != nil {
		return err
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return err
	}
	app, err := i.Acquirer.Acquire(ctx, req.AppLocation, workDir)
	if err != nil {
		return err
	}
	log.Debug().Str("bundle_id", app.BundleIdentifier).Msg("acquired app")
	progress.step()

	if err := beginStage(progress, "Registering the App ID..."); err != nil {
		return err
	}
	appID, err := i.registerAppID(ctx, app, team, session)
	if err != nil {
		return err
	}
	progress.step()

	if err := beginStage(progress, "Updating the App ID..."); err != nil {
		return err
	}
	appID, err = i.updateFeatures(ctx, appID, app, team, session)
	if err != nil {
		return err
	}
	progress.step()

	if err := beginStage(progress, "Fetching the provisioning profile..."); err != nil {
		return err
	}
	profile, err := i.Portal.FetchProvisioningProfile(ctx, appID, team, session)
	if err != nil {
		return err
	}
	i.inspectProfile(log, profile, device)
	progress.step()

	if err := beginStage(progress, "Beginning installation..."); err != nil {
		return err
	}
	if err := i.Signer.SignApp(ctx, app.Path, certificate, profile); err != nil {
		return err
	}
	if err := i.DeviceInstaller.InstallApp(ctx, app.Path, device.Identifier, progress); err != nil {
		return err
	}
	progress.finish()

	log.Info().Str("bundle_id", app.BundleIdentifier).Msg("installed app")
	return nil
}

// beginStage is the per-stage cancellation checkpoint; no stage's remote
// call is issued once cancellation has been requested.
func beginStage(progress *Progress, label string) error {
	if progress.Cancelled() {
		return ErrCancelled
	}
	progress.setLabel(label)
	return nil
}

// inspectProfile logs advisory problems with the fetched profile. The
// profile is used as-is either way; the signing and transport collaborators
// surface hard failures.
func (i *Installer) inspectProfile(log zerolog.Logger, profile *portal.ProvisioningProfile, device *portal.Device) {
	payload, err := profile.Payload()
	if err != nil {
		log.Warn().Err(err).Msg("could not inspect provisioning profile")
		return
	}
	if payload.IsExpired() {
		log.Warn().Time("expired", payload.ExpirationDate).Msg("provisioning profile is expired")
	}
	if !payload.IsDeviceAllowed(device.Identifier) {
		log.Warn().Msg("device is not included in the provisioning profile")
	}
}
