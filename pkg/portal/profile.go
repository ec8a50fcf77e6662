package portal

import (
	"crypto/x509"
	"fmt"
	"time"

	"go.mozilla.org/pkcs7"
	"howett.net/plist"
)

// ProfilePayload is the decoded plist inside a .mobileprovision container.
type ProfilePayload struct {
	Name                        string                 `plist:"Name"`
	TeamName                    string                 `plist:"TeamName"`
	TeamIdentifier              []string               `plist:"TeamIdentifier"`
	AppIDName                   string                 `plist:"AppIDName"`
	ApplicationIdentifierPrefix []string               `plist:"ApplicationIdentifierPrefix"`
	Entitlements                map[string]interface{} `plist:"Entitlements"`
	DeveloperCertificates       [][]byte               `plist:"DeveloperCertificates"`
	ProvisionedDevices          []string               `plist:"ProvisionedDevices"`
	ProvisionsAllDevices        bool                   `plist:"ProvisionsAllDevices"`
	CreationDate                time.Time              `plist:"CreationDate"`
	ExpirationDate              time.Time              `plist:"ExpirationDate"`
	UUID                        string                 `plist:"UUID"`
	Platform                    []string               `plist:"Platform"`
}

// ParseProfilePayload unwraps the CMS (PKCS#7) container of a
// .mobileprovision blob and decodes the plist inside.
func ParseProfilePayload(data []byte) (*ProfilePayload, error) {
	p7, err := pkcs7.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PKCS#7 container: %w", err)
	}

	var payload ProfilePayload
	if _, err := plist.Unmarshal(p7.Content, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse provisioning profile plist: %w", err)
	}

	return &payload, nil
}

// Payload decodes the profile's raw data.
func (p *ProvisioningProfile) Payload() (*ProfilePayload, error) {
	return ParseProfilePayload(p.Data)
}

// TeamID returns the team identifier from the payload.
func (p *ProfilePayload) TeamID() string {
	if len(p.TeamIdentifier) > 0 {
		return p.TeamIdentifier[0]
	}
	if len(p.ApplicationIdentifierPrefix) > 0 {
		return p.ApplicationIdentifierPrefix[0]
	}
	return ""
}

// IsExpired reports whether the profile's expiration date has passed.
func (p *ProfilePayload) IsExpired() bool {
	return time.Now().After(p.ExpirationDate)
}

// IsDeviceAllowed reports whether the given UDID is provisioned by this
// profile.
func (p *ProfilePayload) IsDeviceAllowed(udid string) bool {
	// Enterprise/distribution profiles provision all devices
	if p.ProvisionsAllDevices {
		return true
	}

	for _, device := range p.ProvisionedDevices {
		if device == udid {
			return true
		}
	}
	return false
}

// Certificates parses the developer certificates embedded in the payload.
func (p *ProfilePayload) Certificates() ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	for i, certData := range p.DeveloperCertificates {
		cert, err := x509.ParseCertificate(certData)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate %d: %w", i, err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}
