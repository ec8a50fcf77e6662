package portal

import (
	"time"
)

// AnisetteData is the client-attestation blob the identity provider demands
// with every authenticated request. It is obtained out-of-band from an
// anisette server and treated as opaque apart from its header fields.
type AnisetteData struct {
	MachineID       string
	OneTimePassword string
	LocalUserID     string
	RoutingInfo     uint64

	DeviceUniqueIdentifier string
	DeviceSerialNumber     string
	DeviceDescription      string

	Date     time.Time
	Locale   string
	TimeZone string
}

// Account identifies the authenticated user for the duration of one
// installation. It is never persisted.
type Account struct {
	AppleID    string
	Identifier string
	FirstName  string
	LastName   string
}

// Name returns a display name for the account.
func (a *Account) Name() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}

// Session is the capability token bound to an authenticated Account. Every
// portal call requires one. Sessions expire remotely; they are never refreshed
// mid-workflow.
type Session struct {
	DSID      string
	AuthToken string
	Anisette  *AnisetteData
}

// TeamType describes a development team's membership program.
type TeamType string

const (
	TeamTypeFree         TeamType = "free"
	TeamTypeIndividual   TeamType = "individual"
	TeamTypeOrganization TeamType = "organization"
	TeamTypeEnterprise   TeamType = "enterprise"
	TeamTypeUnknown      TeamType = "unknown"
)

// Team is a development account's organizational unit. It owns certificates,
// devices, App IDs and provisioning profiles.
type Team struct {
	Name       string
	Identifier string
	Type       TeamType
}

// Device is a registered (or to-be-registered) physical device.
type Device struct {
	Name       string
	Identifier string // UDID
}

// Certificate is a development signing certificate. Data holds the
// DER-encoded certificate as returned by the portal; PrivateKey holds the
// PEM-encoded key and is only present on certificates created by this
// process; list responses never carry key material.
type Certificate struct {
	Name         string
	SerialNumber string
	MachineName  string
	MachineID    string
	Data         []byte
	PrivateKey   []byte
}

// AppID is a registered bundle-identifier record with its capability
// configuration. BundleIdentifier carries a generated team-unique prefix, so
// it never equals the application's own bundle identifier.
type AppID struct {
	Name             string
	Identifier       string
	BundleIdentifier string
	Features         map[Feature]interface{}
}

// Clone returns a deep copy of the AppID, suitable for mutating the feature
// set without aliasing the original record.
func (id *AppID) Clone() *AppID {
	clone := *id
	clone.Features = make(map[Feature]interface{}, len(id.Features))
	for k, v := range id.Features {
		clone.Features[k] = v
	}
	return &clone
}

// AppGroup is a registered application group.
type AppGroup struct {
	Name            string
	Identifier      string
	GroupIdentifier string
}

// ProvisioningProfile is the signed artifact binding an App ID, a certificate
// and a device set. Data holds the raw CMS container; Payload gives access to
// the decoded plist.
type ProvisioningProfile struct {
	Name       string
	Identifier string
	UUID       string
	Data       []byte
}
