// Package portal models the resources owned by an Apple developer team
// (teams, devices, certificates, App IDs, provisioning profiles) and defines
// the client contract used to manage them remotely.
//
// The orchestration code in pkg/install consumes only the Client and
// Authenticator interfaces; the bundled HTTP implementation speaks the
// plist-based developer services protocol but is an implementation detail,
// not a public wire contract.
package portal
