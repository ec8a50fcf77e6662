package bundle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Acquirer obtains an application bundle from a local path or a download URL
// and unpacks it into a caller-owned work directory.
type Acquirer struct {
	// HTTP is the client used for downloads. Defaults to http.DefaultClient.
	HTTP *http.Client

	Log zerolog.Logger
}

func (a *Acquirer) httpClient() *http.Client {
	if a.HTTP != nil {
		return a.HTTP
	}
	return http.DefaultClient
}

// Acquire stages the IPA at source (copying or downloading as appropriate),
// unpacks it into workDir and parses the contained .app bundle. The staged
// artifact is deleted afterwards; failure to delete it is logged, not
// propagated.
func (a *Acquirer) Acquire(ctx context.Context, source, workDir string) (*Application, error) {
	stagedPath := filepath.Join(os.TempDir(), uuid.NewString()+".ipa")

	var err error
	if remote, ok := downloadURL(source); ok {
		err = a.download(ctx, remote, stagedPath)
	} else {
		err = copyFile(source, stagedPath, 0644)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stage app: %w", err)
	}

	if err := ExtractIPA(stagedPath, workDir); err != nil {
		os.Remove(stagedPath)
		return nil, err
	}

	if err := os.Remove(stagedPath); err != nil {
		a.Log.Warn().Err(err).Str("path", stagedPath).Msg("failed to remove staged IPA")
	}

	appPath, err := FindAppBundle(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidApplication, err)
	}

	return LoadApplication(appPath)
}

// downloadURL reports whether source denotes a remote location.
func downloadURL(source string) (*url.URL, bool) {
	u, err := url.Parse(source)
	if err != nil {
		return nil, false
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return u, true
	}
	return nil, false
}

// download fetches the IPA over HTTP. The Referer header is set to the
// source host; some hosts refuse the download without it.
func (a *Acquirer) download(ctx context.Context, remote *url.URL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	req.Header.Set("Referer", remote.Host)

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: unexpected status %s", resp.Status)
	}

	destFile, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, resp.Body); err != nil {
		return fmt.Errorf("download interrupted: %w", err)
	}
	return nil
}
