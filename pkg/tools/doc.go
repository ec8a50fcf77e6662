// Package tools adapts external command line utilities to the install
// package's Signer and DeviceInstaller interfaces. Signing is delegated to a
// zsign-compatible binary and device installation to an
// ideviceinstaller-compatible binary, so the workflow itself stays free of
// platform-specific code.
package tools
