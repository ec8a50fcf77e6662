package portal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func newAuthServer(t *testing.T, handler http.HandlerFunc) *HTTPAuthenticator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &HTTPAuthenticator{AuthURL: server.URL, Log: zerolog.Nop()}
}

func writeAuthPlist(t *testing.T, w http.ResponseWriter, payload map[string]interface{}) {
	t.Helper()
	data, err := plist.Marshal(payload, plist.XMLFormat)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "text/x-xml-plist")
	w.Write(data)
}

func TestAuthenticateSuccess(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "user@example.com", r.PostForm.Get("appleId"))
		assert.Equal(t, "secret", r.PostForm.Get("accountPassword"))

		writeAuthPlist(t, w, map[string]interface{}{
			"resultCode": 0,
			"dsPersonId": "12345",
			"myacinfo":   "token",
			"firstName":  "Jane",
			"lastName":   "Doe",
		})
	})

	anisette := &AnisetteData{MachineID: "machine-id"}
	account, session, err := auth.Authenticate(context.Background(), "user@example.com", "secret", anisette, nil)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", account.AppleID)
	assert.Equal(t, "Jane Doe", account.Name())
	assert.Equal(t, "12345", session.DSID)
	assert.Equal(t, "token", session.AuthToken)
	assert.Same(t, anisette, session.Anisette)
}

func TestAuthenticateTwoFactor(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("smsSecurityCode") == "" {
			writeAuthPlist(t, w, map[string]interface{}{"resultCode": resultCodeRequiresTwoFactor})
			return
		}
		assert.Equal(t, "123456", r.PostForm.Get("smsSecurityCode"))
		writeAuthPlist(t, w, map[string]interface{}{
			"resultCode": 0,
			"dsPersonId": "12345",
			"myacinfo":   "token",
		})
	})

	onCode := func() (string, bool) { return "123456", true }
	_, session, err := auth.Authenticate(context.Background(), "user@example.com", "secret", nil, onCode)
	require.NoError(t, err)
	assert.Equal(t, "token", session.AuthToken)
}

func TestAuthenticateTwoFactorDeclined(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeAuthPlist(t, w, map[string]interface{}{"resultCode": resultCodeRequiresTwoFactor})
	})

	onCode := func() (string, bool) { return "", false }
	_, _, err := auth.Authenticate(context.Background(), "user@example.com", "secret", nil, onCode)
	assert.ErrorIs(t, err, ErrVerificationDeclined)
}

func TestAuthenticateTwoFactorNoPrompt(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeAuthPlist(t, w, map[string]interface{}{"resultCode": resultCodeRequiresTwoFactor})
	})

	_, _, err := auth.Authenticate(context.Background(), "user@example.com", "secret", nil, nil)
	assert.ErrorIs(t, err, ErrVerificationDeclined)
}

func TestAuthenticateInvalidCredentials(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeAuthPlist(t, w, map[string]interface{}{
			"resultCode": resultCodeInvalidCredentials,
			"userString": "Your Apple ID or password was entered incorrectly.",
		})
	})

	_, _, err := auth.Authenticate(context.Background(), "user@example.com", "wrong", nil, nil)
	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, int64(resultCodeInvalidCredentials), remoteErr.Code)
}

func TestAuthenticateTokenFromCookie(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "myacinfo", Value: "cookie-token"})
		writeAuthPlist(t, w, map[string]interface{}{
			"resultCode": 0,
			"dsPersonId": "12345",
		})
	})

	_, session, err := auth.Authenticate(context.Background(), "user@example.com", "secret", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "cookie-token", session.AuthToken)
}

func TestAuthenticateMissingToken(t *testing.T) {
	auth := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeAuthPlist(t, w, map[string]interface{}{"resultCode": 0})
	})

	_, _, err := auth.Authenticate(context.Background(), "user@example.com", "secret", nil, nil)
	assert.Error(t, err)
}
