package install

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pixelomer/AltDeploy/pkg/bundle"
	"github.com/pixelomer/AltDeploy/pkg/portal"
)

// registerAppID resolves the App ID for the application. Remote bundle
// identifiers carry a generated unique prefix added at creation time, so an
// existing record is matched by suffix, not equality.
func (i *Installer) registerAppID(ctx context.Context, app *bundle.Application, team *portal.Team, session *portal.Session) (*portal.AppID, error) {
	appIDs, err := i.Portal.FetchAppIDs(ctx, team, session)
	if err != nil {
		return nil, err
	}

	suffix := "." + app.BundleIdentifier
	for idx := range appIDs {
		if strings.HasSuffix(appIDs[idx].BundleIdentifier, suffix) {
			return &appIDs[idx], nil
		}
	}

	name := "ALT- " + app.Name
	bundleID := fmt.Sprintf("ALT-%s.%s", strings.ToUpper(uuid.NewString()), app.BundleIdentifier)
	return i.Portal.AddAppID(ctx, name, bundleID, team, session)
}

// updateFeatures pushes the application's required capability set onto the
// App ID record. The remote feature set is fully replaced, not merged.
func (i *Installer) updateFeatures(ctx context.Context, appID *portal.AppID, app *bundle.Application, team *portal.Team, session *portal.Session) (*portal.AppID, error) {
	updated := appID.Clone()
	updated.Features = requiredFeatures(app)
	return i.Portal.UpdateAppID(ctx, updated, team, session)
}

// requiredFeatures translates the application's declared entitlements into
// the App ID feature mapping. Entitlements with no portal-side feature are
// ignored. A non-empty application-group entitlement forces the app-groups
// feature on: group membership is itself the enabling signal, whatever the
// declared value.
func requiredFeatures(app *bundle.Application) map[portal.Feature]interface{} {
	features := make(map[portal.Feature]interface{})
	for entitlement, value := range app.Entitlements {
		if feature, ok := portal.FeatureForEntitlement(entitlement); ok {
			features[feature] = value
		}
	}

	if groups, ok := app.Entitlements[portal.EntitlementAppGroups]; ok && entitlementGroupCount(groups) > 0 {
		features[portal.FeatureAppGroups] = true
	}

	return features
}

func entitlementGroupCount(value interface{}) int {
	switch groups := value.(type) {
	case []interface{}:
		return len(groups)
	case []string:
		return len(groups)
	default:
		return 0
	}
}
