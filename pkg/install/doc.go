// Package install drives the provisioning and installation workflow: it
// authenticates an account, resolves a development team, registers the target
// device, provisions a signing certificate, registers an App ID with the
// application's capabilities, fetches a provisioning profile, and hands the
// unpacked bundle to the signing and device-transport collaborators.
//
// The workflow is strictly linear; each stage runs only after the previous
// stage's result is observed. Failures halt the chain and surface the first
// error unchanged. Progress and cancellation are exposed through the Progress
// type returned by Installer.Install.
package install
