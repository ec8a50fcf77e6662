package install

import (
	"context"

	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// resolveDevice ensures the target device is known to the team, registering
// it when allowed. The remote record wins over the caller-supplied one.
func (i *Installer) resolveDevice(ctx context.Context, device portal.Device, autoRegister bool, team *portal.Team, session *portal.Session) (*portal.Device, error) {
	devices, err := i.Portal.FetchDevices(ctx, team, session)
	if err != nil {
		return nil, err
	}

	for idx := range devices {
		if devices[idx].Identifier == device.Identifier {
			return &devices[idx], nil
		}
	}

	if !autoRegister {
		return nil, ErrDeviceNotRegistered
	}

	return i.Portal.RegisterDevice(ctx, device.Name, device.Identifier, team, session)
}
