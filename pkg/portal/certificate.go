package portal

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"

	gop12 "software.sslmate.com/src/go-pkcs12"
)

// CertificateRequest is a freshly generated signing request plus the private
// key it was generated from. The portal consumes the CSR; the key stays local
// and is paired with the issued certificate.
type CertificateRequest struct {
	CSR        []byte // PEM-encoded certificate request
	PrivateKey []byte // PEM-encoded RSA private key
}

// NewCertificateRequest generates a 2048-bit RSA key and a CSR for the given
// subject name.
func NewCertificateRequest(commonName string) (*CertificateRequest, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:            pkix.Name{CommonName: commonName},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate request: %w", err)
	}

	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})

	return &CertificateRequest{CSR: csrPEM, PrivateKey: keyPEM}, nil
}

// X509 parses the DER certificate payload returned by the portal.
func (c *Certificate) X509() (*x509.Certificate, error) {
	if len(c.Data) == 0 {
		return nil, fmt.Errorf("certificate %s has no data", c.SerialNumber)
	}
	cert, err := x509.ParseCertificate(c.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate %s: %w", c.SerialNumber, err)
	}
	return cert, nil
}

// P12 packages the certificate and its private key as a PKCS#12 archive for
// hand-off to a signing tool. The private key must be attached.
func (c *Certificate) P12(password string) ([]byte, error) {
	if len(c.PrivateKey) == 0 {
		return nil, fmt.Errorf("certificate %s has no private key attached", c.SerialNumber)
	}

	cert, err := c.X509()
	if err != nil {
		return nil, err
	}

	key, err := parsePrivateKeyPEM(c.PrivateKey)
	if err != nil {
		return nil, err
	}

	data, err := gop12.LegacyRC2.Encode(key, cert, nil, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode P12: %w", err)
	}
	return data, nil
}

func parsePrivateKeyPEM(data []byte) (interface{}, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode private key PEM block")
	}

	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		return x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		return x509.ParseECPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unsupported PEM type: %s", block.Type)
	}
}
