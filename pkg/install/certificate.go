package install

import (
	"context"

	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// certificateMachineName identifies certificates created by this client.
const certificateMachineName = "AltDeploy"

// resolveCertificate ends with exactly one signing certificate with its
// private key attached. The portal enforces a small quota of live
// certificates per team and offers no add-without-evicting, so existing
// certificates are revoked one at a time until the slot is free, re-listing
// after each revocation rather than assuming freed capacity.
func (i *Installer) resolveCertificate(ctx context.Context, team *portal.Team, session *portal.Session) (*portal.Certificate, error) {
	for {
		certificates, err := i.Portal.FetchCertificates(ctx, team, session)
		if err != nil {
			return nil, err
		}
		if len(certificates) == 0 {
			break
		}
		// Only a certificate staged by this iteration's own listing is ever
		// revoked. Each pass removes one quota-consuming resource, so the
		// loop terminates.
		if err := i.Portal.RevokeCertificate(ctx, &certificates[0], team, session); err != nil {
			return nil, err
		}
	}

	created, err := i.Portal.AddCertificate(ctx, certificateMachineName, team, session)
	if err != nil {
		return nil, err
	}
	if len(created.PrivateKey) == 0 {
		return nil, ErrMissingPrivateKey
	}

	// Creation and listing are not atomic: re-fetch and locate the new
	// certificate by serial number. The re-fetched record is authoritative
	// for remote state but never carries the private key, so the key from
	// the creation response is paired back onto it.
	certificates, err := i.Portal.FetchCertificates(ctx, team, session)
	if err != nil {
		return nil, err
	}

	for idx := range certificates {
		if certificates[idx].SerialNumber == created.SerialNumber {
			certificate := certificates[idx]
			certificate.PrivateKey = created.PrivateKey
			return &certificate, nil
		}
	}

	return nil, ErrMissingCertificate
}
