package install

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelomer/AltDeploy/pkg/portal"
	"github.com/pixelomer/AltDeploy/pkg/portal/portalfake"
)

func TestResolveCertificateRevokesAllExisting(t *testing.T) {
	fake := portalfake.New()
	fake.Certificates = []portal.Certificate{
		{Name: "Old 1", SerialNumber: "OLD-1"},
		{Name: "Old 2", SerialNumber: "OLD-2"},
		{Name: "Old 3", SerialNumber: "OLD-3"},
	}

	installer := newTestInstaller(fake, &scriptedPrompter{})
	cert, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	require.NoError(t, err)

	assert.Equal(t, 3, fake.CallCount("RevokeCertificate"))
	assert.Equal(t, 1, fake.CallCount("AddCertificate"))
	assert.NotEmpty(t, cert.PrivateKey)
	assert.NotContains(t, []string{"OLD-1", "OLD-2", "OLD-3"}, cert.SerialNumber)
}

func TestResolveCertificateListCountWithOneExisting(t *testing.T) {
	fake := portalfake.New()
	fake.Certificates = []portal.Certificate{{Name: "Old", SerialNumber: "OLD-1"}}

	installer := newTestInstaller(fake, &scriptedPrompter{})
	_, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	require.NoError(t, err)

	// Initial listing, re-listing after the revoke, re-listing after creation.
	assert.Equal(t, 3, fake.CallCount("FetchCertificates"))
	assert.Equal(t, 1, fake.CallCount("RevokeCertificate"))
}

func TestResolveCertificateEmptyTeamSkipsRevocation(t *testing.T) {
	fake := portalfake.New()

	installer := newTestInstaller(fake, &scriptedPrompter{})
	cert, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	require.NoError(t, err)

	assert.Equal(t, 0, fake.CallCount("RevokeCertificate"))
	assert.Equal(t, 2, fake.CallCount("FetchCertificates"))
	assert.Equal(t, certificateMachineName, cert.MachineName)
}

func TestResolveCertificateMissingPrivateKey(t *testing.T) {
	fake := portalfake.New()
	fake.CertificatePrivateKey = nil

	installer := newTestInstaller(fake, &scriptedPrompter{})
	_, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	assert.ErrorIs(t, err, ErrMissingPrivateKey)
}

func TestResolveCertificateMissingFromListing(t *testing.T) {
	fake := portalfake.New()
	fake.OmitCreatedCertificateFromList = true

	installer := newTestInstaller(fake, &scriptedPrompter{})
	_, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	assert.ErrorIs(t, err, ErrMissingCertificate)
}

func TestResolveCertificateAttachesKeyToListedRecord(t *testing.T) {
	fake := portalfake.New()

	installer := newTestInstaller(fake, &scriptedPrompter{})
	cert, err := installer.resolveCertificate(context.Background(), &portal.Team{Identifier: "TEAM"}, &portal.Session{})
	require.NoError(t, err)

	// The key comes from the creation response; the listed record never has one.
	assert.Equal(t, fake.CertificatePrivateKey, cert.PrivateKey)
}
