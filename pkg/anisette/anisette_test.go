package anisette

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAnisetteData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"X-Apple-I-MD-M": "machine-id",
			"X-Apple-I-MD": "otp",
			"X-Apple-I-MD-RINFO": "17106176",
			"X-Mme-Device-Id": "device-id",
			"X-Apple-I-Client-Time": "2024-05-01T12:34:56Z"
		}`))
	}))
	defer server.Close()

	p := &HTTPProvider{URL: server.URL}
	data, err := p.FetchAnisetteData(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "machine-id", data.MachineID)
	assert.Equal(t, uint64(17106176), data.RoutingInfo)
}

func TestFetchAnisetteDataServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := &HTTPProvider{URL: server.URL}
	_, err := p.FetchAnisetteData(context.Background())
	assert.Error(t, err)
}

func TestFetchAnisetteDataInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	p := &HTTPProvider{URL: server.URL}
	_, err := p.FetchAnisetteData(context.Background())
	assert.Error(t, err)
}

func TestFetchAnisetteDataMissingURL(t *testing.T) {
	p := &HTTPProvider{}
	_, err := p.FetchAnisetteData(context.Background())
	assert.Error(t, err)
}
