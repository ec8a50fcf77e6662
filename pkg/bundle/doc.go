// Package bundle acquires application bundles (local IPA files or download
// URLs), unpacks them and parses them into Application records, including the
// entitlements declared in the executable's code signature.
package bundle
