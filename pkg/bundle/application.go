package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blacktop/go-macho"
	"github.com/pixelomer/AltDeploy/pkg/portal"
	"howett.net/plist"
)

// ErrInvalidApplication is returned when unpacked contents cannot be parsed
// as an application bundle.
var ErrInvalidApplication = errors.New("not a valid application bundle")

// Application is the bundle under installation: its display name, bundle
// identifier and the entitlements declared in its signing metadata.
type Application struct {
	Path             string
	Name             string
	BundleIdentifier string
	Entitlements     map[portal.Entitlement]interface{}
}

// LoadApplication parses a .app bundle directory into an Application record.
// The bundle identifier and name come from Info.plist; the declared
// entitlements are read from the main executable's code signature when one is
// present.
func LoadApplication(appPath string) (*Application, error) {
	infoPlistPath := filepath.Join(appPath, "Info.plist")
	data, err := os.ReadFile(infoPlistPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read Info.plist: %v", ErrInvalidApplication, err)
	}

	var info map[string]interface{}
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: failed to parse Info.plist: %v", ErrInvalidApplication, err)
	}

	bundleID, ok := info["CFBundleIdentifier"].(string)
	if !ok || bundleID == "" {
		return nil, fmt.Errorf("%w: CFBundleIdentifier not found in Info.plist", ErrInvalidApplication)
	}

	name, _ := info["CFBundleDisplayName"].(string)
	if name == "" {
		name, _ = info["CFBundleName"].(string)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(appPath), ".app")
	}

	app := &Application{
		Path:             appPath,
		Name:             name,
		BundleIdentifier: bundleID,
		Entitlements:     map[portal.Entitlement]interface{}{},
	}

	// Entitlements are best-effort: an unsigned or stripped executable simply
	// declares none.
	if execName, ok := info["CFBundleExecutable"].(string); ok && execName != "" {
		if entitlements, err := readEntitlements(filepath.Join(appPath, execName)); err == nil {
			app.Entitlements = entitlements
		}
	}

	return app, nil
}

// readEntitlements extracts the XML entitlements blob from a Mach-O
// executable's embedded code signature.
func readEntitlements(execPath string) (map[portal.Entitlement]interface{}, error) {
	xml, err := readSignatureEntitlementsXML(execPath)
	if err != nil {
		return nil, err
	}
	if xml == "" {
		return map[portal.Entitlement]interface{}{}, nil
	}

	var raw map[string]interface{}
	if _, err := plist.Unmarshal([]byte(xml), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse entitlements plist: %w", err)
	}

	entitlements := make(map[portal.Entitlement]interface{}, len(raw))
	for k, v := range raw {
		entitlements[portal.Entitlement(k)] = v
	}
	return entitlements, nil
}

func readSignatureEntitlementsXML(path string) (string, error) {
	if m, err := macho.Open(path); err == nil {
		defer m.Close()
		if cs := m.CodeSignature(); cs != nil {
			return cs.Entitlements, nil
		}
		return "", nil
	}

	// Universal binaries need the fat wrapper peeled first.
	fat, err := macho.OpenFat(path)
	if err != nil {
		return "", fmt.Errorf("failed to parse Mach-O: %w", err)
	}
	defer fat.Close()

	for _, arch := range fat.Arches {
		if cs := arch.CodeSignature(); cs != nil && cs.Entitlements != "" {
			return cs.Entitlements, nil
		}
	}
	return "", nil
}
