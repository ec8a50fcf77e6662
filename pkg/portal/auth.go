package portal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"howett.net/plist"
)

const defaultAuthURL = "https://idmsa.apple.com/IDMSWebAuth/authenticate"

// Portal result codes surfaced during authentication.
const (
	resultCodeInvalidCredentials  = 8058
	resultCodeRequiresTwoFactor   = 8062
	resultCodeIncorrectVerifyCode = 8063
)

// ErrVerificationDeclined is returned when the identity provider demanded a
// one-time code and the user declined to enter one.
var ErrVerificationDeclined = errors.New("verification code entry declined")

// HTTPAuthenticator authenticates against the remote identity provider. It
// implements Authenticator.
type HTTPAuthenticator struct {
	// AuthURL overrides the identity provider endpoint. Used by tests.
	AuthURL string

	// HTTP is the underlying HTTP client. Defaults to http.DefaultClient.
	HTTP *http.Client

	Log zerolog.Logger
}

var _ Authenticator = (*HTTPAuthenticator)(nil)

func (a *HTTPAuthenticator) authURL() string {
	if a.AuthURL != "" {
		return a.AuthURL
	}
	return defaultAuthURL
}

func (a *HTTPAuthenticator) httpClient() *http.Client {
	if a.HTTP != nil {
		return a.HTTP
	}
	return http.DefaultClient
}

type authResponse struct {
	ResultCode int64  `plist:"resultCode"`
	UserString string `plist:"userString"`
	DSID       string `plist:"dsPersonId"`
	AuthToken  string `plist:"myacinfo"`
	FirstName  string `plist:"firstName"`
	LastName   string `plist:"lastName"`
}

// Authenticate performs the credential exchange, prompting for a one-time
// code through onCodeRequired when the provider demands one. A declined code
// fails with ErrVerificationDeclined.
func (a *HTTPAuthenticator) Authenticate(ctx context.Context, appleID, password string, anisette *AnisetteData, onCodeRequired CodeRequiredFunc) (*Account, *Session, error) {
	response, err := a.exchange(ctx, appleID, password, "", anisette)
	if err != nil {
		return nil, nil, err
	}

	if response.ResultCode == resultCodeRequiresTwoFactor {
		if onCodeRequired == nil {
			return nil, nil, ErrVerificationDeclined
		}
		code, ok := onCodeRequired()
		if !ok {
			return nil, nil, ErrVerificationDeclined
		}
		response, err = a.exchange(ctx, appleID, password, code, anisette)
		if err != nil {
			return nil, nil, err
		}
	}

	if response.ResultCode != 0 {
		return nil, nil, &RemoteError{Code: response.ResultCode, Message: response.UserString}
	}
	if response.AuthToken == "" || response.DSID == "" {
		return nil, nil, fmt.Errorf("identity provider returned no session token")
	}

	a.Log.Debug().Str("apple_id", appleID).Msg("authenticated")

	account := &Account{
		AppleID:    appleID,
		Identifier: response.DSID,
		FirstName:  response.FirstName,
		LastName:   response.LastName,
	}
	session := &Session{
		DSID:      response.DSID,
		AuthToken: response.AuthToken,
		Anisette:  anisette,
	}
	return account, session, nil
}

func (a *HTTPAuthenticator) exchange(ctx context.Context, appleID, password, verificationCode string, anisette *AnisetteData) (*authResponse, error) {
	form := url.Values{
		"appleId":         {appleID},
		"accountPassword": {password},
		"appIdKey":        {clientID},
		"format":          {"plist"},
	}
	if verificationCode != "" {
		form.Set("smsSecurityCode", verificationCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL(), bytes.NewReader([]byte(form.Encode())))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/x-xml-plist")
	req.Header.Set("User-Agent", "Xcode")
	if anisette != nil {
		req.Header.Set("X-Apple-I-MD-M", anisette.MachineID)
		req.Header.Set("X-Apple-I-MD", anisette.OneTimePassword)
		req.Header.Set("X-Apple-I-MD-LU", anisette.LocalUserID)
		req.Header.Set("X-Mme-Device-Id", anisette.DeviceUniqueIdentifier)
		req.Header.Set("X-MMe-Client-Info", anisette.DeviceDescription)
		req.Header.Set("X-Apple-I-Client-Time", anisette.Date.UTC().Format(time.RFC3339))
	}

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read authentication response: %w", err)
	}

	var response authResponse
	if _, err := plist.Unmarshal(data, &response); err != nil {
		return nil, fmt.Errorf("failed to decode authentication response: %w", err)
	}

	// The token may arrive as a cookie rather than a payload field.
	if response.AuthToken == "" {
		for _, cookie := range resp.Cookies() {
			if cookie.Name == "myacinfo" {
				response.AuthToken = cookie.Value
				break
			}
		}
	}

	return &response, nil
}
