package portal

// Entitlement is a capability declaration embedded in an application bundle's
// signing metadata.
type Entitlement string

const (
	EntitlementApplicationIdentifier Entitlement = "application-identifier"
	EntitlementKeychainAccessGroups  Entitlement = "keychain-access-groups"
	EntitlementAppGroups             Entitlement = "com.apple.security.application-groups"
	EntitlementGetTaskAllow          Entitlement = "get-task-allow"
	EntitlementTeamIdentifier        Entitlement = "com.apple.developer.team-identifier"
	EntitlementInterAppAudio         Entitlement = "inter-app-audio"
	EntitlementGameCenter            Entitlement = "com.apple.developer.game-center"
)

// Feature is the portal-side capability switch of an App ID record.
type Feature string

const (
	FeatureGameCenter    Feature = "gameCenter"
	FeatureAppGroups     Feature = "APG3427HIY"
	FeatureInterAppAudio Feature = "IAD53UNK2F"
)

var featureByEntitlement = map[Entitlement]Feature{
	EntitlementAppGroups:     FeatureAppGroups,
	EntitlementInterAppAudio: FeatureInterAppAudio,
	EntitlementGameCenter:    FeatureGameCenter,
}

var entitlementByFeature = map[Feature]Entitlement{
	FeatureAppGroups:     EntitlementAppGroups,
	FeatureInterAppAudio: EntitlementInterAppAudio,
	FeatureGameCenter:    EntitlementGameCenter,
}

// FeatureForEntitlement translates an entitlement key to its App ID feature.
// Most entitlements have no portal-side feature; those return ok=false and
// are simply not synced.
func FeatureForEntitlement(entitlement Entitlement) (Feature, bool) {
	feature, ok := featureByEntitlement[entitlement]
	return feature, ok
}

// EntitlementForFeature is the reverse translation.
func EntitlementForFeature(feature Feature) (Entitlement, bool) {
	entitlement, ok := entitlementByFeature[feature]
	return entitlement, ok
}
