package portal

import (
	"context"
	"fmt"
)

// RemoteError is a failure surfaced by the developer portal itself, carrying
// the service's result code and user-facing message.
type RemoteError struct {
	Code    int64
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("developer portal error (code %d)", e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// CodeRequiredFunc is invoked when the identity provider demands a one-time
// verification code. Returning ok=false means the user declined, which
// cancels the authentication.
type CodeRequiredFunc func() (code string, ok bool)

// Authenticator authenticates an account against the remote identity
// provider, producing the session required by every portal call.
type Authenticator interface {
	Authenticate(ctx context.Context, appleID, password string, anisette *AnisetteData, onCodeRequired CodeRequiredFunc) (*Account, *Session, error)
}

// Client is the developer-portal CRUD surface consumed by the installation
// workflow. All lookups are idempotent reads; creations are guarded by a
// prior lookup upstream.
type Client interface {
	FetchTeams(ctx context.Context, account *Account, session *Session) ([]Team, error)

	FetchDevices(ctx context.Context, team *Team, session *Session) ([]Device, error)
	RegisterDevice(ctx context.Context, name, udid string, team *Team, session *Session) (*Device, error)

	FetchCertificates(ctx context.Context, team *Team, session *Session) ([]Certificate, error)
	AddCertificate(ctx context.Context, machineName string, team *Team, session *Session) (*Certificate, error)
	RevokeCertificate(ctx context.Context, certificate *Certificate, team *Team, session *Session) error

	FetchAppIDs(ctx context.Context, team *Team, session *Session) ([]AppID, error)
	AddAppID(ctx context.Context, name, bundleIdentifier string, team *Team, session *Session) (*AppID, error)
	UpdateAppID(ctx context.Context, appID *AppID, team *Team, session *Session) (*AppID, error)

	FetchProvisioningProfile(ctx context.Context, appID *AppID, team *Team, session *Session) (*ProvisioningProfile, error)
}
