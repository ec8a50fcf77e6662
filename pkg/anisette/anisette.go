// Package anisette fetches client-attestation data from an anisette server.
package anisette

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// Provider supplies the attestation blob required to authenticate against
// the identity provider.
type Provider interface {
	FetchAnisetteData(ctx context.Context) (*portal.AnisetteData, error)
}

// HTTPProvider fetches anisette data from a JSON endpoint.
type HTTPProvider struct {
	// URL is the anisette server endpoint. Required.
	URL string

	// HTTP is the underlying HTTP client. Defaults to http.DefaultClient.
	HTTP *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

func (p *HTTPProvider) httpClient() *http.Client {
	if p.HTTP != nil {
		return p.HTTP
	}
	return http.DefaultClient
}

// FetchAnisetteData requests a fresh attestation blob from the server.
func (p *HTTPProvider) FetchAnisetteData(ctx context.Context) (*portal.AnisetteData, error) {
	if p.URL == "" {
		return nil, fmt.Errorf("anisette server URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("anisette request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anisette server returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read anisette response: %w", err)
	}

	var data portal.AnisetteData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode anisette data: %w", err)
	}
	return &data, nil
}
