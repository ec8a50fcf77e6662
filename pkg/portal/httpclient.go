package portal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"howett.net/plist"
)

const (
	defaultServicesURL = "https://developerservices2.apple.com/services/QH65B2"

	protocolVersion = "QH65B2"
	clientID        = "XABBG36SBA"
)

// HTTPClient talks to the developer portal using its plist request/response
// convention. It implements Client.
type HTTPClient struct {
	// ServicesURL overrides the developer services base URL. Used by tests.
	ServicesURL string

	// HTTP is the underlying HTTP client. Defaults to http.DefaultClient.
	HTTP *http.Client

	Log zerolog.Logger
}

var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) servicesURL() string {
	if c.ServicesURL != "" {
		return strings.TrimSuffix(c.ServicesURL, "/")
	}
	return defaultServicesURL
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

type responseHeader struct {
	ResultCode   int64  `plist:"resultCode"`
	UserString   string `plist:"userString"`
	ResultString string `plist:"resultString"`
}

// sendRequest performs one plist RPC against the portal. The request body is
// the given parameters plus the protocol boilerplate; the session's anisette
// data is spread across the attestation headers. Returns the raw response
// body after the result code has been checked.
func (c *HTTPClient) sendRequest(ctx context.Context, endpoint string, team *Team, session *Session, params map[string]interface{}) ([]byte, error) {
	body := map[string]interface{}{
		"clientId":        clientID,
		"protocolVersion": protocolVersion,
		"requestId":       strings.ToUpper(uuid.NewString()),
		"userLocale":      []string{"en_US"},
	}
	if team != nil {
		body["teamId"] = team.Identifier
	}
	for k, v := range params {
		body[k] = v
	}

	encoded, err := plist.Marshal(body, plist.XMLFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	query := url.Values{"clientId": {clientID}}
	if team != nil {
		query.Set("teamId", team.Identifier)
	}
	requestURL := fmt.Sprintf("%s/%s?%s", c.servicesURL(), endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "text/x-xml-plist")
	req.Header.Set("Accept", "text/x-xml-plist")
	req.Header.Set("User-Agent", "Xcode")
	req.Header.Set("Accept-Language", "en-us")
	if session != nil {
		req.Header.Set("X-Apple-I-Identity-Id", session.DSID)
		req.Header.Set("X-Apple-GS-Token", session.AuthToken)
		if a := session.Anisette; a != nil {
			req.Header.Set("X-Apple-I-MD-M", a.MachineID)
			req.Header.Set("X-Apple-I-MD", a.OneTimePassword)
			req.Header.Set("X-Apple-I-MD-LU", a.LocalUserID)
			req.Header.Set("X-Apple-I-MD-RINFO", fmt.Sprintf("%d", a.RoutingInfo))
			req.Header.Set("X-Mme-Device-Id", a.DeviceUniqueIdentifier)
			req.Header.Set("X-MMe-Client-Info", a.DeviceDescription)
			req.Header.Set("X-Apple-I-Client-Time", a.Date.UTC().Format(time.RFC3339))
			req.Header.Set("X-Apple-Locale", a.Locale)
			req.Header.Set("X-Apple-I-TimeZone", a.TimeZone)
		}
	}

	c.Log.Debug().Str("endpoint", endpoint).Msg("sending portal request")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read portal response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{Code: int64(resp.StatusCode), Message: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	var header responseHeader
	if _, err := plist.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to decode portal response: %w", err)
	}
	if header.ResultCode != 0 {
		message := header.UserString
		if message == "" {
			message = header.ResultString
		}
		return nil, &RemoteError{Code: header.ResultCode, Message: message}
	}

	return data, nil
}

type teamResponse struct {
	Name        string `plist:"name"`
	TeamID      string `plist:"teamId"`
	Type        string `plist:"type"`
	Memberships []struct {
		Name string `plist:"name"`
	} `plist:"memberships"`
}

func (t teamResponse) teamType() TeamType {
	for _, m := range t.Memberships {
		if strings.Contains(strings.ToLower(m.Name), "free") {
			return TeamTypeFree
		}
	}
	switch t.Type {
	case "Individual":
		return TeamTypeIndividual
	case "Company/Organization":
		return TeamTypeOrganization
	case "In-House":
		return TeamTypeEnterprise
	default:
		return TeamTypeUnknown
	}
}

// FetchTeams lists the development teams visible to the account.
func (c *HTTPClient) FetchTeams(ctx context.Context, account *Account, session *Session) ([]Team, error) {
	data, err := c.sendRequest(ctx, "listTeams.action", nil, session, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Teams []teamResponse `plist:"teams"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode teams: %w", err)
	}

	teams := make([]Team, 0, len(payload.Teams))
	for _, t := range payload.Teams {
		teams = append(teams, Team{Name: t.Name, Identifier: t.TeamID, Type: t.teamType()})
	}
	return teams, nil
}

// FetchDevices lists the devices registered to the team.
func (c *HTTPClient) FetchDevices(ctx context.Context, team *Team, session *Session) ([]Device, error) {
	data, err := c.sendRequest(ctx, "ios/listDevices.action", team, session, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Devices []struct {
			Name         string `plist:"name"`
			DeviceNumber string `plist:"deviceNumber"`
		} `plist:"devices"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}

	devices := make([]Device, 0, len(payload.Devices))
	for _, d := range payload.Devices {
		devices = append(devices, Device{Name: d.Name, Identifier: d.DeviceNumber})
	}
	return devices, nil
}

// RegisterDevice adds a device to the team.
func (c *HTTPClient) RegisterDevice(ctx context.Context, name, udid string, team *Team, session *Session) (*Device, error) {
	data, err := c.sendRequest(ctx, "ios/addDevice.action", team, session, map[string]interface{}{
		"name":         name,
		"deviceNumber": udid,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Device struct {
			Name         string `plist:"name"`
			DeviceNumber string `plist:"deviceNumber"`
		} `plist:"device"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode device: %w", err)
	}

	return &Device{Name: payload.Device.Name, Identifier: payload.Device.DeviceNumber}, nil
}

type certificateResponse struct {
	Name         string `plist:"name"`
	SerialNumber string `plist:"serialNumber"`
	SerialNum    string `plist:"serialNum"`
	MachineName  string `plist:"machineName"`
	MachineID    string `plist:"machineId"`
	CertContent  []byte `plist:"certContent"`
}

func (r certificateResponse) certificate() Certificate {
	serial := r.SerialNumber
	if serial == "" {
		serial = r.SerialNum
	}
	return Certificate{
		Name:         r.Name,
		SerialNumber: serial,
		MachineName:  r.MachineName,
		MachineID:    r.MachineID,
		Data:         r.CertContent,
	}
}

// FetchCertificates lists the team's development certificates. The returned
// records never carry private keys.
func (c *HTTPClient) FetchCertificates(ctx context.Context, team *Team, session *Session) ([]Certificate, error) {
	data, err := c.sendRequest(ctx, "ios/listAllDevelopmentCerts.action", team, session, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Certificates []certificateResponse `plist:"certificates"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode certificates: %w", err)
	}

	certificates := make([]Certificate, 0, len(payload.Certificates))
	for _, r := range payload.Certificates {
		certificates = append(certificates, r.certificate())
	}
	return certificates, nil
}

// AddCertificate generates a signing request locally and submits it to the
// portal. The returned certificate carries the locally generated private key.
func (c *HTTPClient) AddCertificate(ctx context.Context, machineName string, team *Team, session *Session) (*Certificate, error) {
	request, err := NewCertificateRequest(machineName)
	if err != nil {
		return nil, err
	}

	data, err := c.sendRequest(ctx, "ios/submitDevelopmentCSR.action", team, session, map[string]interface{}{
		"csrContent":                 string(request.CSR),
		"machineId":                  strings.ToUpper(uuid.NewString()),
		"machineName":                machineName,
		"DVTSourceControlWorkspace":  false,
		"includeInactiveProfiles":    false,
		"requestProvisioningProfile": false,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		CertRequest certificateResponse `plist:"certRequest"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode certificate request: %w", err)
	}

	certificate := payload.CertRequest.certificate()
	certificate.PrivateKey = request.PrivateKey
	return &certificate, nil
}

// RevokeCertificate revokes a certificate by serial number.
func (c *HTTPClient) RevokeCertificate(ctx context.Context, certificate *Certificate, team *Team, session *Session) error {
	_, err := c.sendRequest(ctx, "ios/revokeDevelopmentCert.action", team, session, map[string]interface{}{
		"serialNumber": certificate.SerialNumber,
	})
	return err
}

type appIDResponse struct {
	Name       string                 `plist:"name"`
	AppIDID    string                 `plist:"appIdId"`
	Identifier string                 `plist:"identifier"`
	Features   map[string]interface{} `plist:"features"`
}

func (r appIDResponse) appID() AppID {
	features := make(map[Feature]interface{}, len(r.Features))
	for k, v := range r.Features {
		features[Feature(k)] = v
	}
	return AppID{
		Name:             r.Name,
		Identifier:       r.AppIDID,
		BundleIdentifier: r.Identifier,
		Features:         features,
	}
}

// FetchAppIDs lists the team's registered App IDs.
func (c *HTTPClient) FetchAppIDs(ctx context.Context, team *Team, session *Session) ([]AppID, error) {
	data, err := c.sendRequest(ctx, "ios/listAppIds.action", team, session, nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		AppIDs []appIDResponse `plist:"appIds"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode app ids: %w", err)
	}

	appIDs := make([]AppID, 0, len(payload.AppIDs))
	for _, r := range payload.AppIDs {
		appIDs = append(appIDs, r.appID())
	}
	return appIDs, nil
}

// AddAppID registers a new App ID for the bundle identifier.
func (c *HTTPClient) AddAppID(ctx context.Context, name, bundleIdentifier string, team *Team, session *Session) (*AppID, error) {
	data, err := c.sendRequest(ctx, "ios/addAppId.action", team, session, map[string]interface{}{
		"name":       sanitizeAppIDName(name),
		"identifier": bundleIdentifier,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		AppID appIDResponse `plist:"appId"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode app id: %w", err)
	}

	appID := payload.AppID.appID()
	return &appID, nil
}

// UpdateAppID pushes the App ID's full feature mapping to the portal. The
// remote feature set is replaced, not merged.
func (c *HTTPClient) UpdateAppID(ctx context.Context, appID *AppID, team *Team, session *Session) (*AppID, error) {
	params := map[string]interface{}{
		"appIdId": appID.Identifier,
	}
	for feature, value := range appID.Features {
		params[string(feature)] = value
	}

	data, err := c.sendRequest(ctx, "ios/updateAppId.action", team, session, params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		AppID appIDResponse `plist:"appId"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode app id: %w", err)
	}

	updated := payload.AppID.appID()
	return &updated, nil
}

// FetchProvisioningProfile downloads the team provisioning profile for the
// App ID. The profile is generated server-side; a fresh artifact is returned
// on every call.
func (c *HTTPClient) FetchProvisioningProfile(ctx context.Context, appID *AppID, team *Team, session *Session) (*ProvisioningProfile, error) {
	data, err := c.sendRequest(ctx, "ios/downloadTeamProvisioningProfile.action", team, session, map[string]interface{}{
		"appIdId": appID.Identifier,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Profile struct {
			Name           string `plist:"name"`
			ProfileID      string `plist:"provisioningProfileId"`
			UUID           string `plist:"UUID"`
			EncodedProfile []byte `plist:"encodedProfile"`
		} `plist:"provisioningProfile"`
	}
	if _, err := plist.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode provisioning profile: %w", err)
	}

	return &ProvisioningProfile{
		Name:       payload.Profile.Name,
		Identifier: payload.Profile.ProfileID,
		UUID:       payload.Profile.UUID,
		Data:       payload.Profile.EncodedProfile,
	}, nil
}

// sanitizeAppIDName strips characters the portal rejects in App ID names.
func sanitizeAppIDName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "App"
	}
	return b.String()
}
