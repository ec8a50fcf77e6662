package portal

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mozilla.org/pkcs7"
	"howett.net/plist"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

// newTestIdentity returns a self-signed certificate and its key for fixture
// building.
func newTestIdentity(t *testing.T) (*x509.Certificate, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "Apple Development: Test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestNewCertificateRequest(t *testing.T) {
	request, err := NewCertificateRequest("AltDeploy")
	require.NoError(t, err)

	csrBlock, _ := pem.Decode(request.CSR)
	require.NotNil(t, csrBlock)
	assert.Equal(t, "CERTIFICATE REQUEST", csrBlock.Type)

	csr, err := x509.ParseCertificateRequest(csrBlock.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "AltDeploy", csr.Subject.CommonName)
	require.NoError(t, csr.CheckSignature())

	keyBlock, _ := pem.Decode(request.PrivateKey)
	require.NotNil(t, keyBlock)
	assert.Equal(t, "RSA PRIVATE KEY", keyBlock.Type)
	_, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
	require.NoError(t, err)
}

func TestCertificateP12RoundTrip(t *testing.T) {
	cert, key := newTestIdentity(t)
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	certificate := &Certificate{
		Name:         "Apple Development: Test",
		SerialNumber: "SERIAL-1",
		Data:         cert.Raw,
		PrivateKey:   keyPEM,
	}

	p12Data, err := certificate.P12("password")
	require.NoError(t, err)

	decodedKey, decodedCert, _, err := gop12.DecodeChain(p12Data, "password")
	require.NoError(t, err)
	assert.Equal(t, cert.Raw, decodedCert.Raw)

	decodedRSA, ok := decodedKey.(*rsa.PrivateKey)
	require.True(t, ok)
	assert.True(t, key.Equal(decodedRSA))
}

func TestCertificateP12RequiresPrivateKey(t *testing.T) {
	cert, _ := newTestIdentity(t)
	certificate := &Certificate{SerialNumber: "SERIAL-1", Data: cert.Raw}

	_, err := certificate.P12("password")
	assert.Error(t, err)
}

func TestCertificateX509InvalidData(t *testing.T) {
	certificate := &Certificate{SerialNumber: "SERIAL-1", Data: []byte("garbage")}
	_, err := certificate.X509()
	assert.Error(t, err)

	certificate.Data = nil
	_, err = certificate.X509()
	assert.Error(t, err)
}

// buildProfileFixture wraps a profile payload plist in a signed CMS container
// the way the portal serves .mobileprovision artifacts.
func buildProfileFixture(t *testing.T, payload ProfilePayload) []byte {
	t.Helper()

	content, err := plist.Marshal(payload, plist.XMLFormat)
	require.NoError(t, err)

	signed, err := pkcs7.NewSignedData(content)
	require.NoError(t, err)

	cert, key := newTestIdentity(t)
	require.NoError(t, signed.AddSigner(cert, key, pkcs7.SignerInfoConfig{}))

	data, err := signed.Finish()
	require.NoError(t, err)
	return data
}

func TestParseProfilePayload(t *testing.T) {
	cert, _ := newTestIdentity(t)
	fixture := buildProfileFixture(t, ProfilePayload{
		Name:                  "iOS Team Provisioning Profile: com.example.app",
		TeamName:              "Jane Doe",
		TeamIdentifier:        []string{"TEAM1"},
		DeveloperCertificates: [][]byte{cert.Raw},
		ProvisionedDevices:    []string{"UDID-1", "UDID-2"},
		CreationDate:          time.Now().Add(-time.Hour).UTC(),
		ExpirationDate:        time.Now().Add(7 * 24 * time.Hour).UTC(),
		UUID:                  "9C2A7ACC-D7A2-4C0B-BBF9-5F6E82FD29B4",
	})

	payload, err := ParseProfilePayload(fixture)
	require.NoError(t, err)

	assert.Equal(t, "TEAM1", payload.TeamID())
	assert.False(t, payload.IsExpired())
	assert.True(t, payload.IsDeviceAllowed("UDID-1"))
	assert.False(t, payload.IsDeviceAllowed("UDID-3"))

	certs, err := payload.Certificates()
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, cert.Raw, certs[0].Raw)
}

func TestParseProfilePayloadExpired(t *testing.T) {
	fixture := buildProfileFixture(t, ProfilePayload{
		Name:           "Expired",
		ExpirationDate: time.Now().Add(-time.Hour).UTC(),
	})

	payload, err := ParseProfilePayload(fixture)
	require.NoError(t, err)
	assert.True(t, payload.IsExpired())
}

func TestParseProfilePayloadProvisionsAllDevices(t *testing.T) {
	fixture := buildProfileFixture(t, ProfilePayload{
		Name:                 "Enterprise",
		ProvisionsAllDevices: true,
		ExpirationDate:       time.Now().Add(time.Hour).UTC(),
	})

	payload, err := ParseProfilePayload(fixture)
	require.NoError(t, err)
	assert.True(t, payload.IsDeviceAllowed("ANY-UDID"))
}

func TestParseProfilePayloadInvalidContainer(t *testing.T) {
	_, err := ParseProfilePayload([]byte("not a CMS container"))
	assert.Error(t, err)
}

func TestProfilePayloadTeamIDFallsBackToPrefix(t *testing.T) {
	payload := &ProfilePayload{ApplicationIdentifierPrefix: []string{"PREFIX1"}}
	assert.Equal(t, "PREFIX1", payload.TeamID())

	assert.Equal(t, "", (&ProfilePayload{}).TeamID())
}
